package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
)

type searchPage struct {
	PageData
	Query string
	Item  *model.Item
	Error string
}

// SearchPage handles GET /search. Only submitted items are shown: a token
// belonging to an item in any other state, or a failed lookup, reads as
// "not found".
func (s *Server) SearchPage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	data := &searchPage{PageData: page(r, "Search"), Query: q}

	switch {
	case q == "":
	case !view.ValidToken(q):
		data.Error = view.InvalidTokenMessage
	default:
		item, err := BackendSession(r.Context()).ItemByToken(r.Context(), q)
		switch {
		case backend.IsUnauthorized(err):
			s.backendFailed(w, r, err, "/", "")
			return
		case err != nil:
			if !backend.IsNotFound(err) {
				slog.Error("token search failed", "user", user.ID, "token", q, "error", err)
			}
			data.Error = view.NoItemMessage
		case item.Status != model.ItemStatusSubmitted:
			data.Error = view.NoItemMessage
		default:
			data.Item = item
		}
	}

	s.Templates.Render(w, "search.html", data)
}

type reportsPage struct {
	PageData
	Tokens []model.ItemToken
}

// ReportsPage handles GET /reports, the tokens of the user's own reports.
func (s *Server) ReportsPage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	pd := page(r, "My Reports")

	tokens, err := BackendSession(r.Context()).MyItemTokens(r.Context())
	switch {
	case err == nil:
	case backend.IsUnauthorized(err):
		s.backendFailed(w, r, err, "/", "")
		return
	case backend.IsForbidden(err), backend.IsNotFound(err):
		tokens = nil
	default:
		slog.Error("failed to load item tokens", "user", user.ID, "error", err)
		if pd.Alert == "" {
			pd.Alert = "Failed to load your reports."
		}
	}

	s.Templates.Render(w, "reports.html", &reportsPage{PageData: pd, Tokens: tokens})
}
