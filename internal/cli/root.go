// Package cli implements finditctl, a scriptable client for the
// lost-and-found backend. It signs in once and keeps the backend session
// in a local SQLite file.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/db"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/store"
)

// sessionID is the row the CLI keeps its backend session under.
const sessionID = "cli"

// settingBackend remembers which backend the stored session belongs to.
const settingBackend = "cli_backend"

// sessionTTL is how long a CLI login is kept locally. The backend may end
// it sooner, which is noticed on the next call.
const sessionTTL = 30 * 24 * time.Hour

const defaultBackend = "http://localhost:3000/"

var timeNow = time.Now

// errNotLoggedIn is returned by commands that need a session when there is none.
var errNotLoggedIn = errors.New("not logged in (run: finditctl login)")

// App carries the global flags shared by every command.
type App struct {
	DBPath     string
	BackendURL string
	Timeout    time.Duration

	// HTTPOptions are extra backend client options, used by tests.
	HTTPOptions []backend.Option
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "finditctl.sqlite3"
	}
	return filepath.Join(dir, "findit", "finditctl.sqlite3")
}

// NewRootCmd builds the finditctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "finditctl",
		Short:        "Command-line client for the findit lost-and-found service",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  finditctl login --email ana@example.com
  finditctl items --tab verified
  finditctl requests receive
  finditctl requests accept 65f0c2...
  finditctl search ITEM-1A2B3C4D
  finditctl admin export -o users.xlsx
`),
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("FINDITCTL_DB", defaultDBPath()), "Local session database")
	cmd.PersistentFlags().StringVar(&app.BackendURL, "backend", envOr("FINDIT_BACKEND_URL", ""), "Backend base URL (default: the one used at login, else "+defaultBackend+")")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 15*time.Second, "Backend request timeout")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newReportsCmd(app))
	cmd.AddCommand(newRequestsCmd(app))
	cmd.AddCommand(newAdminCmd(app))

	return cmd
}

// openDB opens the local database, creating its directory on first use.
func (app *App) openDB() (*sql.DB, error) {
	if dir := filepath.Dir(app.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	database, err := db.Open(app.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// client builds the backend client. The URL comes from --backend, then
// the URL stored at login, then the default.
func (app *App) client(ctx context.Context, database *sql.DB) (*backend.Client, error) {
	u := app.BackendURL
	if u == "" {
		stored, err := store.GetSetting(ctx, database, settingBackend)
		if err != nil {
			return nil, err
		}
		u = stored
	}
	if u == "" {
		u = defaultBackend
	}
	opts := append([]backend.Option{backend.WithTimeout(app.Timeout)}, app.HTTPOptions...)
	return backend.New(u, opts...)
}

// env is what a signed-in command works with.
type env struct {
	db      *sql.DB
	key     *[32]byte
	session *backend.Session
	stored  *store.Session
	out     io.Writer
}

// withSession loads the stored session, runs fn and persists any cookies
// the backend rotated. A 401 from the backend drops the local session.
func (app *App) withSession(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	database, err := app.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	key, err := store.GetSessionKey(ctx, database)
	if err != nil {
		return err
	}
	stored, err := store.GetSession(ctx, database, key, sessionID)
	if err != nil {
		return err
	}
	if stored == nil {
		return errNotLoggedIn
	}

	client, err := app.client(ctx, database)
	if err != nil {
		return err
	}
	bs := client.Session(stored.Cookies)

	err = fn(ctx, &env{db: database, key: key, session: bs, stored: stored, out: cmd.OutOrStdout()})
	if backend.IsUnauthorized(err) {
		_ = store.DeleteSession(ctx, database, sessionID)
		return errors.New("session expired (run: finditctl login)")
	}
	if bs.Changed() {
		if perr := store.UpdateSessionCookies(ctx, database, key, sessionID, bs.Cookies()); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

// requireRole fails unless the signed-in user has one of roles.
func requireRole(ctx context.Context, e *env, roles ...string) (*model.User, error) {
	user, err := e.session.Profile(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if user.Role == r {
			return user, nil
		}
	}
	return nil, fmt.Errorf("this command is not available to %s accounts", model.RoleName(user.Role))
}
