// Package web is the server-rendered frontend. Every page is rendered from
// fresh backend data; form posts are forwarded to the backend and answered
// with a redirect back to the page they came from.
package web

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/metrics"
	webembed "github.com/erazemk/findit/web"
)

// Server holds all dependencies for page handlers.
type Server struct {
	DB            *sql.DB
	Backend       *backend.Client
	Templates     *Templates
	JWTSecret     string
	SessionKey    *[32]byte
	SessionTTL    time.Duration
	SecureCookies bool
	MaxUpload     int64
}

// Options configures NewRouter.
type Options struct {
	DB            *sql.DB
	Backend       *backend.Client
	JWTSecret     string
	SessionKey    *[32]byte
	SessionTTL    time.Duration
	SecureCookies bool
	MaxUpload     int64
	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Metrics
}

// NewServer validates opts and loads the templates.
func NewServer(opts Options) (*Server, error) {
	if opts.DB == nil || opts.Backend == nil {
		return nil, errors.New("web: database and backend are required")
	}
	if opts.JWTSecret == "" || opts.SessionKey == nil {
		return nil, errors.New("web: session secrets are required")
	}

	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:            opts.DB,
		Backend:       opts.Backend,
		Templates:     templates,
		JWTSecret:     opts.JWTSecret,
		SessionKey:    opts.SessionKey,
		SessionTTL:    opts.SessionTTL,
		SecureCookies: opts.SecureCookies,
		MaxUpload:     opts.MaxUpload,
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = 24 * time.Hour
	}
	if s.MaxUpload <= 0 {
		s.MaxUpload = 20 << 20
	}
	return s, nil
}

// NewRouter creates the frontend router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	s, err := NewServer(opts)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	r.Get("/login", s.LoginPage)
	r.Post("/login", s.LoginSubmit)
	r.Get("/signup", s.SignupPage)
	r.Post("/signup", s.SignupSubmit)
	r.Post("/logout", s.Logout)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(s.SessionMiddleware)

		r.Get("/", s.FeedPage)
		r.Post("/items/{kind:lost|found}", s.ReportSubmit)
		r.Post("/items/{id}/claim", s.ClaimSubmit)
		r.Post("/items/{id}/return", s.ReturnSubmit)
		r.Post("/items/{id}/review", s.ReviewSubmit)
		r.Post("/items/{id}/questions", s.QuestionsSubmit)

		r.Get("/requests", s.RequestsPage)
		r.Post("/requests/{id}/{action:accept|reject|cancel}", s.RequestActionSubmit)

		r.Get("/search", s.SearchPage)
		r.Get("/reports", s.ReportsPage)

		r.Get("/admin", s.AdminPage)
		r.Get("/admin/users.xlsx", s.AdminExport)
		r.Post("/admin/users/{id}/role", s.AdminRoleSubmit)
		r.Post("/admin/users/{id}/delete", s.AdminDeleteSubmit)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found.")
	})

	return r, nil
}
