package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
)

// Modal kinds rendered over the feed.
const (
	modalLost      = "lost"
	modalFound     = "found"
	modalClaim     = "claim"
	modalReturn    = "return"
	modalReview    = "review"
	modalQuestions = "questions"
)

// modal is the open form on the feed page, if any. Values and Error are set
// when a submission failed and the form is shown again.
type modal struct {
	Kind   string
	Item   *model.Item
	Action string
	Values url.Values
	Error  string
}

// Get returns a previously entered value.
func (m *modal) Get(key string) string {
	if m == nil || m.Values == nil {
		return ""
	}
	return m.Values.Get(key)
}

// itemCard is one item as the feed renders it.
type itemCard struct {
	*model.Item
	Card view.Card
	// Own is true for items the viewer reported.
	Own bool
}

// At returns the i-th value submitted under key.
func (m *modal) At(key string, i int) string {
	if m == nil || i < 0 || i >= len(m.Values[key]) {
		return ""
	}
	return m.Values[key][i]
}

// All returns the non-blank values submitted under key.
func (m *modal) All(key string) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, v := range m.Values[key] {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

type feedPage struct {
	PageData
	Tabs      []view.TabSpec
	Tab       view.TabSpec
	Items     []model.Item
	Cards     []itemCard
	Modal     *modal
	MaxImages int
}

// FeedPage handles GET /.
func (s *Server) FeedPage(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	q := r.URL.Query()
	tab := view.ResolveTab(user.Role, q.Get("tab"))

	var m *modal
	switch {
	case q.Get("form") != "":
		if tab.ShowAdd && q.Get("form") == tab.Form {
			m = &modal{Kind: tab.Form}
		}
	case q.Get("claim") != "":
		m = &modal{Kind: modalClaim, Item: &model.Item{ID: q.Get("claim")}}
	case q.Get("return") != "":
		m = &modal{Kind: modalReturn, Item: &model.Item{ID: q.Get("return")}}
	case q.Get("review") != "":
		m = &modal{Kind: modalReview, Item: &model.Item{ID: q.Get("review")}, Action: q.Get("action")}
	case q.Get("questions") != "":
		m = &modal{Kind: modalQuestions, Item: &model.Item{ID: q.Get("questions")}}
	}

	s.renderFeed(w, r, http.StatusOK, tab.ID, m)
}

// modalTab is the only tab a modal may open on.
var modalTab = map[string]string{
	modalLost:      view.TabLost,
	modalFound:     view.TabVerified,
	modalClaim:     view.TabVerified,
	modalReturn:    view.TabLost,
	modalReview:    view.TabSubmitted,
	modalQuestions: view.TabReceived,
}

// renderFeed fetches the tab's items and renders the feed, with m open on
// top when it belongs to the tab. Item modals are resolved against the
// fetched items so they always show backend data.
func (s *Server) renderFeed(w http.ResponseWriter, r *http.Request, status int, tabID string, m *modal) {
	user := CurrentUser(r.Context())
	bs := BackendSession(r.Context())
	tab := view.ResolveTab(user.Role, tabID)

	pd := page(r, tab.Label)
	items, err := bs.ItemsByStatus(r.Context(), tab.Status)
	switch {
	case err == nil:
	case backend.IsForbidden(err):
		items = nil
	case backend.IsUnauthorized(err):
		s.endSession(w, r, sessionClaims(r.Context()))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	default:
		slog.Error("failed to load items", "user", user.ID, "tab", tab.ID, "error", err)
		items = nil
		if pd.Alert == "" {
			pd.Alert = "Failed to load items. Please try again."
		}
	}

	var formErr string
	if m != nil {
		formErr = m.Error
	}
	if m != nil && modalTab[m.Kind] != tab.ID {
		m = nil
	}
	if m != nil && m.Item != nil {
		m.Item = findItem(items, m.Item.ID)
		if m.Item == nil || !allowedItemAction(user, m) {
			m = nil
		}
	}
	if m != nil && m.Kind == modalReview && m.Action != model.ItemStatusReceived && m.Action != model.ItemStatusRejected {
		m = nil
	}

	// A failed form whose item is gone still reports why it failed.
	if m == nil && formErr != "" && pd.Alert == "" {
		pd.Alert = formErr
	}

	cards := make([]itemCard, len(items))
	for i := range items {
		it := &items[i]
		cards[i] = itemCard{
			Item: it,
			Card: tab.Card,
			Own:  it.ReportedBy != nil && it.ReportedBy.ID == user.ID,
		}
	}

	s.Templates.RenderStatus(w, status, "feed.html", &feedPage{
		PageData:  pd,
		Tabs:      view.Tabs(user.Role),
		Tab:       tab,
		Items:     items,
		Cards:     cards,
		Modal:     m,
		MaxImages: imaging.MaxImages,
	})
}

// allowedItemAction hides actions that make no sense for the viewer, such as
// offering to return one's own lost item.
func allowedItemAction(user *model.User, m *modal) bool {
	if m.Kind == modalReturn && m.Item.ReportedBy != nil && m.Item.ReportedBy.ID == user.ID {
		return false
	}
	return true
}

func findItem(items []model.Item, id string) *model.Item {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
