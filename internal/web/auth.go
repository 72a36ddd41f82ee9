package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/findit/internal/auth"
	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/store"
	"github.com/erazemk/findit/internal/view"
)

type loginPage struct {
	PageData
	Email string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, sess := s.loadSession(r); sess != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "login.html", &loginPage{
		PageData: page(r, "Login"),
		Email:    r.URL.Query().Get("email"),
	})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		pd := page(r, "Login")
		pd.Alert = msg
		s.Templates.RenderStatus(w, status, "login.html", &loginPage{PageData: pd, Email: email})
	}

	if email == "" || password == "" {
		fail(http.StatusBadRequest, "Please enter your email and password.")
		return
	}

	bs, user, err := s.Backend.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			slog.Info("login rejected", "email", email)
			fail(http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		slog.Error("login failed", "email", email, "error", err)
		fail(http.StatusBadGateway, "Login failed. Please try again later.")
		return
	}

	sess := &store.Session{
		ID:        auth.NewSessionID(),
		UserID:    user.ID,
		Email:     user.Email,
		Cookies:   bs.Cookies(),
		ExpiresAt: time.Now().Add(s.SessionTTL),
	}
	if err := store.CreateSession(r.Context(), s.DB, s.SessionKey, sess); err != nil {
		slog.Error("failed to create session", "error", err)
		fail(http.StatusInternalServerError, "Login failed. Please try again later.")
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, sess.ID, user.ID, user.Email, s.SessionTTL)
	if err != nil {
		slog.Error("failed to sign session token", "error", err)
		fail(http.StatusInternalServerError, "Login failed. Please try again later.")
		return
	}

	s.setAuthCookie(w, token)
	slog.Info("user logged in", "user", user.ID, "role", user.Role)

	target := "/"
	if to := view.Redirect(user.Role, target); to != "" {
		target = to
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type signupPage struct {
	PageData
	Values url.Values
}

// SignupPage handles GET /signup.
func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "signup.html", &signupPage{PageData: page(r, "Sign up"), Values: url.Values{}})
}

// SignupSubmit handles POST /signup.
func (s *Server) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, msg string) {
		pd := page(r, "Sign up")
		pd.Alert = msg
		values := url.Values{}
		for k, v := range r.Form {
			if k != "password" && k != "confirmPassword" {
				values[k] = v
			}
		}
		s.Templates.RenderStatus(w, status, "signup.html", &signupPage{PageData: pd, Values: values})
	}

	if err := s.parseForm(w, r); err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}

	reg := backend.Registration{
		FirstName:   strings.TrimSpace(r.FormValue("firstName")),
		LastName:    strings.TrimSpace(r.FormValue("lastName")),
		Email:       strings.TrimSpace(r.FormValue("email")),
		Password:    r.FormValue("password"),
		Department:  strings.TrimSpace(r.FormValue("department")),
		Designation: strings.TrimSpace(r.FormValue("designation")),
		Gender:      r.FormValue("gender"),
		ID:          strings.TrimSpace(r.FormValue("id")),
	}
	if reg.FirstName == "" || reg.Email == "" || reg.Password == "" || reg.Department == "" ||
		reg.Designation == "" || reg.Gender == "" || reg.ID == "" {
		fail(http.StatusBadRequest, "Please fill all required fields.")
		return
	}
	if reg.Password != r.FormValue("confirmPassword") {
		fail(http.StatusBadRequest, "Passwords do not match.")
		return
	}

	photos, err := formImages(r, "profilePhoto", 1)
	if err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}
	if len(photos) == 1 {
		reg.ProfilePhoto = photos[0]
	}

	if err := s.Backend.Register(r.Context(), reg); err != nil {
		slog.Error("signup failed", "email", reg.Email, "error", err)
		fail(http.StatusBadGateway, backend.Message(err, "Signup failed. Please try again later."))
		return
	}

	slog.Info("user signed up", "email", reg.Email)
	notice(w, r, "/login?email="+url.QueryEscape(reg.Email), "Account created successfully! Please log in.")
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	claims, sess := s.loadSession(r)
	if sess != nil {
		if err := s.Backend.Session(sess.Cookies).Logout(r.Context()); err != nil {
			slog.Warn("backend logout failed", "session", sess.ID, "error", err)
		}
		slog.Info("user logged out", "user", sess.UserID)
	}
	s.endSession(w, r, claims)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
