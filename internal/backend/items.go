package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
)

// ItemsByStatus lists the items in one feed status (lost, verified,
// submitted, received, claimed).
func (s *Session) ItemsByStatus(ctx context.Context, status string) ([]model.Item, error) {
	var items []model.Item
	cl := call{name: "items.status", method: http.MethodGet, path: "api/items/status/" + url.PathEscape(status)}
	if err := s.do(ctx, cl, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Report is a lost or found item report.
type Report struct {
	Kind        string // model.ItemStatusLost or model.ItemStatusFound
	ItemType    string
	Description string
	Location    string
	Date        string // YYYY-MM-DD as entered
	Clock       string // HH:MM as entered
	Time        *time.Time
	Images      []*imaging.Upload
}

// reportStatus is the status field each report form sends. A lost report
// enters the backend as submitted.
var reportStatus = map[string]string{
	model.ItemStatusLost:  model.ItemStatusSubmitted,
	model.ItemStatusFound: model.ItemStatusFound,
}

// ReportItem submits a lost or found report as a single multipart POST.
func (s *Session) ReportItem(ctx context.Context, r Report) error {
	status, ok := reportStatus[r.Kind]
	if !ok {
		return fmt.Errorf("unknown report kind %q", r.Kind)
	}

	f := NewForm()
	optional := func(name, value string) {
		if value != "" {
			f.Field(name, value)
		}
	}
	optional("itemType", r.ItemType)
	optional("description", r.Description)
	optional("location", r.Location)
	optional("date", r.Date)
	f.Field("status", status)
	if r.Time != nil {
		f.Field("time", r.Time.UTC().Format(time.RFC3339))
	}
	f.Images("images", r.Images)

	cl, err := f.call("items.report", "api/items/report/"+r.Kind)
	if err != nil {
		return err
	}
	return s.do(ctx, cl, nil)
}

// ItemByToken looks up an item by its handover token (ITEM-XXXXXXXX).
func (s *Session) ItemByToken(ctx context.Context, token string) (*model.Item, error) {
	var resp struct {
		Item *model.Item `json:"item"`
	}
	cl := call{name: "items.token", method: http.MethodGet, path: "api/items/token/" + url.PathEscape(token)}
	if err := s.do(ctx, cl, &resp); err != nil {
		return nil, err
	}
	if resp.Item == nil {
		return nil, &Error{StatusCode: http.StatusNotFound, Endpoint: "items.token", Message: "No item found with this token"}
	}
	return resp.Item, nil
}

// MyItemTokens lists the tokens of items the user has reported.
func (s *Session) MyItemTokens(ctx context.Context) ([]model.ItemToken, error) {
	var tokens []model.ItemToken
	cl := call{name: "items.tokens", method: http.MethodGet, path: "api/items/my-item-tokens"}
	if err := s.do(ctx, cl, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// ReviewItem lets a security guard receive or reject a submitted item.
func (s *Session) ReviewItem(ctx context.Context, itemID, status, notes string) error {
	if status != model.ItemStatusReceived && status != model.ItemStatusRejected {
		return fmt.Errorf("invalid review status %q", status)
	}
	cl, err := jsonCall("items.review", http.MethodPut, "api/items/"+url.PathEscape(itemID)+"/review", map[string]string{
		"status": status,
		"notes":  notes,
	})
	if err != nil {
		return err
	}
	return s.do(ctx, cl, nil)
}

// PostQuestions publishes a received item with a public description and the
// verification questions claimants must answer.
func (s *Session) PostQuestions(ctx context.Context, itemID, verifiedDescription string, questions []string) error {
	cl, err := jsonCall("items.verify", http.MethodPost, "api/items/"+url.PathEscape(itemID)+"/verify", struct {
		VerifiedDescription string   `json:"verifiedDescription"`
		Questions           []string `json:"questions"`
	}{verifiedDescription, nonEmpty(questions)})
	if err != nil {
		return err
	}
	return s.do(ctx, cl, nil)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
