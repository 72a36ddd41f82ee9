package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
)

// Inbox directions.
const (
	InboxSend    = "send"
	InboxReceive = "receive"
)

// Claim is a claim request for a verified item.
type Claim struct {
	ItemID          string
	Answers         []model.Answer
	ProofImages     []*imaging.Upload
	AdditionalNotes string
}

// SendClaim submits a claim with answers to the item's questions.
func (s *Session) SendClaim(ctx context.Context, c Claim) error {
	answers, err := json.Marshal(c.Answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}
	f := NewForm().
		Field("itemId", c.ItemID).
		Field("answers", string(answers)).
		Images("proofImages", c.ProofImages)
	if c.AdditionalNotes != "" {
		f.Field("additionalNotes", c.AdditionalNotes)
	}
	cl, err := f.call("requests.claim", "request/send/claim/"+url.PathEscape(c.ItemID))
	if err != nil {
		return err
	}
	return s.do(ctx, cl, nil)
}

// Return is a request to hand a lost item back to its owner.
type Return struct {
	ItemID          string
	Images          []*imaging.Upload
	AdditionalNotes string
}

// SendReturn submits a return request with proof images.
func (s *Session) SendReturn(ctx context.Context, r Return) error {
	f := NewForm().Images("images", r.Images)
	if r.AdditionalNotes != "" {
		f.Field("additionalNotes", r.AdditionalNotes)
	}
	cl, err := f.call("requests.return", "request/send/return/"+url.PathEscape(r.ItemID))
	if err != nil {
		return err
	}
	return s.do(ctx, cl, nil)
}

// Requests lists the user's sent or received requests.
func (s *Session) Requests(ctx context.Context, box string) ([]model.Request, error) {
	if box != InboxSend && box != InboxReceive {
		return nil, fmt.Errorf("unknown inbox %q", box)
	}
	var reqs []model.Request
	cl := call{name: "requests." + box, method: http.MethodGet, path: "request/" + box}
	if err := s.do(ctx, cl, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Responses to a received request.
const (
	ResponseApproved = "approved"
	ResponseRejected = "rejected"
)

// RespondToRequest accepts or rejects a received request.
func (s *Session) RespondToRequest(ctx context.Context, requestID, response string) error {
	if response != ResponseApproved && response != ResponseRejected {
		return fmt.Errorf("invalid response %q", response)
	}
	cl, err := jsonCall("requests.respond", http.MethodPost, "api/items/verify/"+url.PathEscape(requestID), map[string]string{
		"status": response,
	})
	if err != nil {
		return err
	}
	return s.do(ctx, cl, nil)
}

// CancelRequest withdraws one of the user's own pending requests.
func (s *Session) CancelRequest(ctx context.Context, requestID string) error {
	cl := call{name: "requests.cancel", method: http.MethodPost, path: "request/cancel/" + url.PathEscape(requestID)}
	return s.do(ctx, cl, nil)
}
