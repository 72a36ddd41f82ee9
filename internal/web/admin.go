package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/export"
	"github.com/erazemk/findit/internal/model"
)

type adminPage struct {
	PageData
	Users []model.User
	Roles []string
	Email string
}

// AdminPage handles GET /admin.
func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	pd := page(r, "User Management")
	bs := BackendSession(r.Context())

	var (
		users []model.User
		err   error
	)
	if email != "" {
		users, err = bs.SearchUsers(r.Context(), email)
	} else {
		users, err = bs.ListUsers(r.Context())
	}
	if err != nil {
		if backend.IsUnauthorized(err) {
			s.backendFailed(w, r, err, "/admin", "")
			return
		}
		slog.Error("failed to load users", "user", user.ID, "email", email, "error", err)
		if pd.Alert == "" {
			pd.Alert = backend.Message(err, "Failed to load users.")
		}
	}

	s.Templates.Render(w, "admin.html", &adminPage{
		PageData: pd,
		Users:    users,
		Roles:    model.Roles,
		Email:    email,
	})
}

// AdminRoleSubmit handles POST /admin/users/{id}/role.
func (s *Server) AdminRoleSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	id := chi.URLParam(r, "id")
	role := r.FormValue("role")
	back := adminBack(r)

	if !model.ValidRole(role) {
		alert(w, r, back, "Invalid role.")
		return
	}

	if err := BackendSession(r.Context()).UpdateUserRole(r.Context(), id, role); err != nil {
		s.backendFailed(w, r, err, back, "Failed to update user role")
		return
	}

	slog.Info("user role updated", "user", user.ID, "target", id, "role", role)
	if id == user.ID && role != model.RoleAdmin {
		// The admin demoted themselves and loses the panel.
		notice(w, r, "/", "Your role was changed to "+model.RoleName(role)+".")
		return
	}
	notice(w, r, back, "User role updated successfully.")
}

// AdminDeleteSubmit handles POST /admin/users/{id}/delete.
func (s *Server) AdminDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	id := chi.URLParam(r, "id")
	back := adminBack(r)

	if id == user.ID {
		alert(w, r, back, "You cannot delete your own account.")
		return
	}

	if err := BackendSession(r.Context()).DeleteUser(r.Context(), id); err != nil {
		s.backendFailed(w, r, err, back, "Failed to delete user")
		return
	}

	slog.Info("user deleted", "user", user.ID, "target", id)
	notice(w, r, back, "User deleted successfully.")
}

// AdminExport handles GET /admin/users.xlsx.
func (s *Server) AdminExport(w http.ResponseWriter, r *http.Request) {
	users, err := BackendSession(r.Context()).ListUsers(r.Context())
	if err != nil {
		s.backendFailed(w, r, err, "/admin", "Failed to load users.")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteUsers(&buf, users); err != nil {
		slog.Error("failed to export users", "error", err)
		alert(w, r, "/admin", "Failed to export users.")
		return
	}

	name := "findit-users-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

// adminBack keeps the email filter when returning to the admin page.
func adminBack(r *http.Request) string {
	if email := strings.TrimSpace(r.FormValue("email")); email != "" {
		return "/admin?email=" + url.QueryEscape(email)
	}
	return "/admin"
}
