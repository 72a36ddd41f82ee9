package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/config"
	"github.com/erazemk/findit/internal/db"
	"github.com/erazemk/findit/internal/metrics"
	"github.com/erazemk/findit/internal/store"
	"github.com/erazemk/findit/internal/web"
)

// purgeInterval is how often expired sessions and revoked tokens are removed.
const purgeInterval = time.Hour

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. The returned cleanup closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("findit", flag.ContinueOnError)

	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "")
	fs.StringVar(&cfgPath, "c", "", "")

	var addr, backendURL, dbPath, logPath string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")
	fs.StringVar(&backendURL, "backend", "", "")
	fs.StringVar(&backendURL, "b", "", "")
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: findit [flags]

Flags:
  -c, -config <path>      YAML config file (default: none)
  -a, -addr <host:port>   listen address (default: :8080)
  -b, -backend <url>      backend base URL (default: http://localhost:3000/)
  -d, -db <path>          SQLite session database (default: findit.sqlite3)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment variables FINDIT_ADDR, FINDIT_BACKEND_URL, FINDIT_DB, FINDIT_LOG,
FINDIT_BACKEND_TIMEOUT, FINDIT_SESSION_TTL, FINDIT_MAX_UPLOAD_MB, FINDIT_METRICS
and FINDIT_SECURE_COOKIES override the config file; flags override both.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	ctx := context.Background()
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}
	sessionKey, err := store.GetSessionKey(ctx, database)
	if err != nil {
		slog.Error("failed to get session key", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	clientOpts := []backend.Option{backend.WithTimeout(cfg.BackendTimeout)}
	if cfg.Metrics {
		m = metrics.New()
		clientOpts = append(clientOpts, backend.WithMetrics(backend.NewMetrics(m.Registerer())))
	}

	client, err := backend.New(cfg.NormalizedBackendURL(), clientOpts...)
	if err != nil {
		slog.Error("invalid backend url", "error", err)
		os.Exit(1)
	}

	router, err := web.NewRouter(web.Options{
		DB:            database,
		Backend:       client,
		JWTSecret:     jwtSecret,
		SessionKey:    sessionKey,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
		MaxUpload:     cfg.MaxUploadBytes(),
		Metrics:       m,
	})
	if err != nil {
		slog.Error("failed to set up web router", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.BackendTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeLoop(purgeCtx, database)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		stopPurge()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "backend", client.BaseURL(), "metrics", cfg.Metrics)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// purgeLoop removes expired sessions and revoked tokens until ctx is done.
func purgeLoop(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		purge(ctx, database)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func purge(ctx context.Context, database *sql.DB) {
	sessions, err := store.PurgeExpiredSessions(ctx, database)
	if err != nil {
		slog.Error("failed to purge sessions", "error", err)
	}
	tokens, err := store.PurgeRevokedTokens(ctx, database)
	if err != nil {
		slog.Error("failed to purge revoked tokens", "error", err)
	}
	if sessions > 0 || tokens > 0 {
		slog.Info("purged expired state", "sessions", sessions, "tokens", tokens)
	}
}
