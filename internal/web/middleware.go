package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/findit/internal/auth"
	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/store"
	"github.com/erazemk/findit/internal/view"
)

type webContextKey string

const (
	webUserKey    webContextKey = "webuser"
	webBackendKey webContextKey = "webbackend"
	webClaimsKey  webContextKey = "webclaims"
)

// cookieName is the frontend's own session cookie.
const cookieName = "token"

// SessionMiddleware resolves the session cookie to a stored session,
// reloads the user's profile from the backend and applies the role
// redirects. Cookies the backend rotates during the request are written
// back to the session store afterwards.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, sess := s.loadSession(r)
		if sess == nil {
			s.clearAuthCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		bs := s.Backend.Session(sess.Cookies)
		defer s.persistCookies(r.Context(), sess.ID, bs)

		user, err := bs.Profile(r.Context())
		if err != nil {
			if backend.IsUnauthorized(err) {
				s.endSession(w, r, claims)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			slog.Error("failed to load profile", "session", sess.ID, "error", err)
			s.renderError(w, r, http.StatusBadGateway, "The lost and found service is unavailable. Please try again later.")
			return
		}

		if to := view.Redirect(user.Role, r.URL.Path); to != "" {
			http.Redirect(w, r, to, http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), webUserKey, user)
		ctx = context.WithValue(ctx, webBackendKey, bs)
		ctx = context.WithValue(ctx, webClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loadSession validates the session cookie and returns the stored session,
// or nil when the visitor is not signed in.
func (s *Server) loadSession(r *http.Request) (*auth.Claims, *store.Session) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value)
	if err != nil {
		return nil, nil
	}

	revoked, err := store.IsTokenRevoked(r.Context(), s.DB, claims.ID)
	if err != nil {
		slog.Error("failed to check token revocation", "error", err)
		return nil, nil
	}
	if revoked {
		return nil, nil
	}

	sess, err := store.GetSession(r.Context(), s.DB, s.SessionKey, claims.ID)
	if err != nil {
		slog.Error("failed to load session", "session", claims.ID, "error", err)
		return nil, nil
	}
	return claims, sess
}

// persistCookies stores rotated backend cookies. It uses a detached context
// so a cancelled page request does not lose the new credentials.
func (s *Server) persistCookies(ctx context.Context, sessionID string, bs *backend.Session) {
	if !bs.Changed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := store.UpdateSessionCookies(ctx, s.DB, s.SessionKey, sessionID, bs.Cookies()); err != nil {
		slog.Error("failed to update session cookies", "session", sessionID, "error", err)
	}
}

// endSession revokes the session cookie and forgets the stored session.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	s.clearAuthCookie(w)
	if claims == nil {
		return
	}
	expires := time.Now().Add(s.SessionTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), s.DB, claims.ID, expires); err != nil {
		slog.Error("failed to revoke session token", "error", err)
	}
	if err := store.DeleteSession(r.Context(), s.DB, claims.ID); err != nil {
		slog.Error("failed to delete session", "error", err)
	}
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.SessionTTL.Seconds()),
	})
}

// clearAuthCookie clears the session cookie with consistent attributes.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentUser returns the signed-in user's profile.
func CurrentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(webUserKey).(*model.User)
	return u
}

// BackendSession returns the signed-in user's backend session.
func BackendSession(ctx context.Context) *backend.Session {
	bs, _ := ctx.Value(webBackendKey).(*backend.Session)
	return bs
}

func sessionClaims(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(webClaimsKey).(*auth.Claims)
	return c
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
