package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
)

type requestsPage struct {
	PageData
	Tabs     []view.RequestTab
	Tab      view.RequestTab
	Requests []model.Request
}

// RequestsPage handles GET /requests.
func (s *Server) RequestsPage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	tab := view.ResolveRequestTab(r.URL.Query().Get("tab"))
	pd := page(r, "Requests")

	reqs, err := BackendSession(r.Context()).Requests(r.Context(), tab.ID)
	switch {
	case err == nil:
	case backend.IsForbidden(err):
		reqs = nil
	case backend.IsUnauthorized(err):
		s.backendFailed(w, r, err, "/", "")
		return
	default:
		slog.Error("failed to load requests", "user", user.ID, "tab", tab.ID, "error", err)
		if pd.Alert == "" {
			pd.Alert = "Failed to load requests. Please try again."
		}
	}

	s.Templates.Render(w, "requests.html", &requestsPage{
		PageData: pd,
		Tabs:     view.RequestTabs,
		Tab:      tab,
		Requests: reqs,
	})
}

// RequestActionSubmit handles POST /requests/{id}/{accept,reject,cancel}.
func (s *Server) RequestActionSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	id := chi.URLParam(r, "id")
	action := view.Action(chi.URLParam(r, "action"))
	bs := BackendSession(r.Context())

	var (
		err    error
		tab    string
		done   string
		failed string
	)
	switch action {
	case view.ActionAccept:
		tab, done, failed = "receive", "Request accepted successfully!", "Failed to accept request"
		err = bs.RespondToRequest(r.Context(), id, backend.ResponseApproved)
	case view.ActionReject:
		tab, done, failed = "receive", "Request rejected successfully!", "Failed to reject request"
		err = bs.RespondToRequest(r.Context(), id, backend.ResponseRejected)
	case view.ActionCancel:
		tab, done, failed = "send", "Request cancelled.", "Failed to cancel request"
		err = bs.CancelRequest(r.Context(), id)
	default:
		s.renderError(w, r, http.StatusNotFound, "Unknown request action.")
		return
	}

	target := "/requests?tab=" + tab
	if err != nil {
		s.backendFailed(w, r, err, target, failed)
		return
	}

	slog.Info("request updated", "user", user.ID, "request", id, "action", string(action))
	notice(w, r, target, done)
}
