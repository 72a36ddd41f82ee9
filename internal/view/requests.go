package view

import (
	"strings"

	"github.com/erazemk/findit/internal/model"
)

// RequestTab is an inbox tab on the requests page.
type RequestTab struct {
	ID    string
	Label string
	// Own is true when requests in the tab were sent by the viewer.
	Own bool
}

// RequestTabs are the inbox tabs, sent first.
var RequestTabs = []RequestTab{
	{ID: "send", Label: "Send Requests", Own: true},
	{ID: "receive", Label: "Received Requests"},
}

// ResolveRequestTab returns the tab for id, defaulting to the sent inbox.
func ResolveRequestTab(id string) RequestTab {
	for _, t := range RequestTabs {
		if t.ID == id {
			return t
		}
	}
	return RequestTabs[0]
}

// Action is a button on a request card.
type Action string

// Request actions.
const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
)

// Label is the button text.
func (a Action) Label() string {
	switch a {
	case ActionAccept:
		return "Accept"
	case ActionReject:
		return "Reject"
	case ActionCancel:
		return "Cancel Request"
	}
	return string(a)
}

// RequestActions returns the buttons for a request card. Only pending
// requests can be acted on: the initiator may cancel, the receiver may
// accept or reject.
func RequestActions(status string, own bool) []Action {
	if status != model.RequestStatusPending {
		return nil
	}
	if own {
		return []Action{ActionCancel}
	}
	return []Action{ActionAccept, ActionReject}
}

// ActionLabel describes a request from the viewer's side. other is the user
// on the opposite end of the request.
func ActionLabel(own bool, requestType string, other *model.User) string {
	name := ""
	if other != nil {
		name = strings.TrimSpace(other.FirstName + " " + other.LastName)
	}

	switch {
	case own && requestType == model.RequestTypeClaim:
		return "You requested " + name + " to claim this item"
	case own && requestType == model.RequestTypeReturn:
		return "You offered " + name + " to return this item"
	case !own && requestType == model.RequestTypeClaim:
		return name + " claimed this item"
	case !own && requestType == model.RequestTypeReturn:
		return name + " found this item"
	}
	if requestType == model.RequestTypeClaim {
		return "Item claim request"
	}
	return "Item return request"
}

// Indicator is the status badge of a request card.
type Indicator struct {
	Label string
	// Class is the CSS modifier for the badge colour.
	Class string
}

// StatusIndicator returns the badge for a request status.
func StatusIndicator(status string) Indicator {
	switch status {
	case model.RequestStatusPending:
		return Indicator{Label: "Awaiting Response", Class: "pending"}
	case model.RequestStatusAccepted:
		return Indicator{Label: "Accepted", Class: "accepted"}
	case model.RequestStatusRejected:
		return Indicator{Label: "Declined", Class: "rejected"}
	}
	return Indicator{Label: status, Class: "unknown"}
}

// Counterpart returns the user on the other end of r from the viewer's side.
func Counterpart(r *model.Request, own bool) *model.User {
	if r == nil {
		return nil
	}
	if own {
		return r.RequestedTo
	}
	return r.RequestedBy
}
