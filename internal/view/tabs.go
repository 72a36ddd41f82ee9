// Package view holds the role-gated presentation rules: which feed tabs a
// role sees, which card and form each tab uses, and which actions a request
// card offers. Handlers and the CLI share it so both render the same rules.
package view

import (
	"github.com/erazemk/findit/internal/model"
)

// Card names the template used for an item in a tab.
type Card string

// Cards.
const (
	CardLost      Card = "lost"
	CardVerified  Card = "verified"
	CardSubmitted Card = "submitted"
	CardReceived  Card = "received"
	CardClaimed   Card = "claimed"
)

// Tab identifiers.
const (
	TabLost      = "lost"
	TabVerified  = "verified"
	TabSubmitted = "submitted"
	TabReceived  = "received"
	TabClaimed   = "claimed"
)

// TabSpec is one row of the feed dispatch table.
type TabSpec struct {
	ID    string
	Label string
	// Status is the suffix of GET api/items/status/:status.
	Status string
	Card   Card
	// ShowAdd shows the "add" button opening Form.
	ShowAdd bool
	Form    string
	// ShowSearch shows the token search box above the feed.
	ShowSearch bool
	Empty      string

	roles []string
}

// everyone is the visibility of tabs shown to all roles.
var everyone = []string{model.RoleUser, model.RoleSecurityGuard, model.RoleSecurityOfficer, model.RoleAdmin}

// tabs is ordered as the tab bar renders.
var tabs = []TabSpec{
	{
		ID:      TabLost,
		Label:   "Lost Items",
		Status:  model.ItemStatusLost,
		Card:    CardLost,
		ShowAdd: true,
		Form:    model.ItemStatusLost,
		Empty:   "No lost items have been reported yet.",
		roles:   everyone,
	},
	{
		ID:      TabVerified,
		Label:   "Found Items",
		Status:  model.ItemStatusVerified,
		Card:    CardVerified,
		ShowAdd: true,
		Form:    model.ItemStatusFound,
		Empty:   "No found items have been reported yet.",
		roles:   everyone,
	},
	{
		ID:         TabSubmitted,
		Label:      "Submitted Items",
		Status:     model.ItemStatusSubmitted,
		Card:       CardSubmitted,
		ShowSearch: true,
		Empty:      "No items are waiting to be received.",
		roles:      []string{model.RoleSecurityGuard},
	},
	{
		ID:     TabReceived,
		Label:  "Received Items",
		Status: model.ItemStatusReceived,
		Card:   CardReceived,
		Empty:  "No items have been received yet.",
		roles:  []string{model.RoleSecurityOfficer, model.RoleAdmin},
	},
	{
		ID:     TabClaimed,
		Label:  "Claimed Items",
		Status: model.ItemStatusClaimed,
		Card:   CardClaimed,
		Empty:  "No items have been claimed yet.",
		roles:  []string{model.RoleSecurityOfficer, model.RoleAdmin},
	},
}

func (t TabSpec) visibleTo(role string) bool {
	for _, r := range t.roles {
		if r == role {
			return true
		}
	}
	return false
}

// Tabs returns the tabs visible to role, in display order. Unknown roles get
// the tabs every user sees.
func Tabs(role string) []TabSpec {
	if !model.ValidRole(role) {
		role = model.RoleUser
	}
	out := make([]TabSpec, 0, len(tabs))
	for _, t := range tabs {
		if t.visibleTo(role) {
			out = append(out, t)
		}
	}
	return out
}

// DefaultTab returns the tab selected when role opens the feed.
func DefaultTab(role string) string {
	switch role {
	case model.RoleSecurityGuard:
		return TabSubmitted
	case model.RoleSecurityOfficer, model.RoleAdmin:
		return TabReceived
	default:
		return TabLost
	}
}

// ResolveTab returns requested if role may see it, else the role's default.
func ResolveTab(role, requested string) TabSpec {
	for _, t := range Tabs(role) {
		if t.ID == requested {
			return t
		}
	}
	t, _ := Lookup(DefaultTab(role))
	return t
}

// Lookup returns the table row for a tab id regardless of role.
func Lookup(id string) (TabSpec, bool) {
	for _, t := range tabs {
		if t.ID == id {
			return t, true
		}
	}
	return TabSpec{}, false
}

// HasTab reports whether role sees tab id.
func HasTab(role, id string) bool {
	for _, t := range Tabs(role) {
		if t.ID == id {
			return true
		}
	}
	return false
}
