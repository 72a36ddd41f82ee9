package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
)

// formValues copies the submitted text fields for re-rendering a form.
func formValues(r *http.Request) url.Values {
	values := url.Values{}
	if r.MultipartForm != nil {
		for k, v := range r.MultipartForm.Value {
			values[k] = v
		}
		return values
	}
	for k, v := range r.PostForm {
		values[k] = v
	}
	return values
}

// ReportSubmit handles POST /items/lost and POST /items/found.
func (s *Server) ReportSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	kind := chi.URLParam(r, "kind")
	tabID := view.TabLost
	if kind == model.ItemStatusFound {
		tabID = view.TabVerified
	}

	fail := func(status int, msg string) {
		s.renderFeed(w, r, status, tabID, &modal{Kind: kind, Values: formValues(r), Error: msg})
	}

	if err := s.parseForm(w, r); err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}

	report := backend.Report{
		Kind:        kind,
		ItemType:    strings.TrimSpace(r.FormValue("itemType")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Date:        r.FormValue("date"),
		Clock:       r.FormValue("time"),
	}

	if report.ItemType == "" || report.Description == "" {
		fail(http.StatusBadRequest, "Item type and description are required.")
		return
	}
	if kind == model.ItemStatusFound && (report.Location == "" || report.Date == "" || report.Clock == "") {
		fail(http.StatusBadRequest, "Please fill in where and when the item was found.")
		return
	}
	if report.Date != "" && report.Clock != "" {
		when, err := time.ParseInLocation("2006-01-02T15:04", report.Date+"T"+report.Clock, time.Local)
		if err != nil {
			fail(http.StatusBadRequest, "Invalid date or time.")
			return
		}
		report.Time = &when
	}

	images, err := formImages(r, "images", imaging.MaxImages)
	if err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}
	report.Images = images

	if err := BackendSession(r.Context()).ReportItem(r.Context(), report); err != nil {
		if backend.IsUnauthorized(err) {
			s.backendFailed(w, r, err, "/", "")
			return
		}
		slog.Error("failed to report item", "user", user.ID, "kind", kind, "error", err)
		fail(http.StatusBadGateway, backend.Message(err, "Failed to report item. Please try again."))
		return
	}

	slog.Info("item reported", "user", user.ID, "kind", kind, "type", report.ItemType, "images", len(images))
	msg := "Lost item reported successfully."
	if kind == model.ItemStatusFound {
		msg = "Found item submitted successfully."
	}
	notice(w, r, "/?tab="+tabID, msg)
}

// ClaimSubmit handles POST /items/{id}/claim.
func (s *Server) ClaimSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	itemID := chi.URLParam(r, "id")

	fail := func(status int, msg string) {
		s.renderFeed(w, r, status, view.TabVerified, &modal{
			Kind:   modalClaim,
			Item:   &model.Item{ID: itemID},
			Values: formValues(r),
			Error:  msg,
		})
	}

	if err := s.parseForm(w, r); err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}

	// Questions are taken from the backend's copy of the item.
	item, err := s.verifiedItem(r, itemID)
	if err != nil {
		if backend.IsUnauthorized(err) {
			s.backendFailed(w, r, err, "/", "")
			return
		}
		slog.Error("failed to load item for claim", "user", user.ID, "item", itemID, "error", err)
		fail(http.StatusBadGateway, "Failed to load the item. Please try again.")
		return
	}
	if item == nil {
		alert(w, r, "/?tab="+view.TabVerified, "This item can no longer be claimed.")
		return
	}

	answers := r.Form["answer"]
	claim := backend.Claim{
		ItemID:          itemID,
		AdditionalNotes: strings.TrimSpace(r.FormValue("additionalNotes")),
	}
	for i, q := range item.Questions {
		a := ""
		if i < len(answers) {
			a = strings.TrimSpace(answers[i])
		}
		if a == "" {
			fail(http.StatusBadRequest, "Please answer all questions.")
			return
		}
		claim.Answers = append(claim.Answers, model.Answer{Question: q, Answer: a})
	}

	proof, err := formImages(r, "proofImages", imaging.MaxImages)
	if err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}
	claim.ProofImages = proof

	if err := BackendSession(r.Context()).SendClaim(r.Context(), claim); err != nil {
		if backend.IsUnauthorized(err) {
			s.backendFailed(w, r, err, "/", "")
			return
		}
		slog.Error("failed to send claim", "user", user.ID, "item", itemID, "error", err)
		fail(http.StatusBadGateway, backend.Message(err, "Failed to submit claim. Please try again."))
		return
	}

	slog.Info("claim sent", "user", user.ID, "item", itemID)
	notice(w, r, "/?tab="+view.TabVerified, "Claim request submitted successfully.")
}

// verifiedItem returns the verified item with the given id, or nil when it
// is not (or no longer) listed.
func (s *Server) verifiedItem(r *http.Request, id string) (*model.Item, error) {
	items, err := BackendSession(r.Context()).ItemsByStatus(r.Context(), model.ItemStatusVerified)
	if err != nil {
		return nil, err
	}
	return findItem(items, id), nil
}

// ReturnSubmit handles POST /items/{id}/return.
func (s *Server) ReturnSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	itemID := chi.URLParam(r, "id")

	fail := func(status int, msg string) {
		s.renderFeed(w, r, status, view.TabLost, &modal{
			Kind:   modalReturn,
			Item:   &model.Item{ID: itemID},
			Values: formValues(r),
			Error:  msg,
		})
	}

	if err := s.parseForm(w, r); err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}

	images, err := formImages(r, "images", imaging.MaxImages)
	if err != nil {
		fail(http.StatusBadRequest, uploadError(err))
		return
	}
	if len(images) == 0 {
		fail(http.StatusBadRequest, "Please upload at least one image of the item.")
		return
	}

	ret := backend.Return{
		ItemID:          itemID,
		Images:          images,
		AdditionalNotes: strings.TrimSpace(r.FormValue("additionalNotes")),
	}
	if err := BackendSession(r.Context()).SendReturn(r.Context(), ret); err != nil {
		if backend.IsUnauthorized(err) {
			s.backendFailed(w, r, err, "/", "")
			return
		}
		slog.Error("failed to send return", "user", user.ID, "item", itemID, "error", err)
		fail(http.StatusBadGateway, backend.Message(err, "Failed to submit return request."))
		return
	}

	slog.Info("return sent", "user", user.ID, "item", itemID)
	notice(w, r, "/?tab="+view.TabLost, "Return request submitted successfully.")
}

// ReviewSubmit handles POST /items/{id}/review.
func (s *Server) ReviewSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if !view.HasTab(user.Role, view.TabSubmitted) {
		s.renderError(w, r, http.StatusForbidden, "Only security guards can review submitted items.")
		return
	}

	itemID := chi.URLParam(r, "id")
	status := r.FormValue("status")
	notes := strings.TrimSpace(r.FormValue("notes"))
	target := "/?tab=" + view.TabSubmitted

	if status != model.ItemStatusReceived && status != model.ItemStatusRejected {
		alert(w, r, target, "Invalid review action.")
		return
	}

	if err := BackendSession(r.Context()).ReviewItem(r.Context(), itemID, status, notes); err != nil {
		s.backendFailed(w, r, err, target, "Failed to update status.")
		return
	}

	slog.Info("item reviewed", "user", user.ID, "item", itemID, "status", status)
	msg := "Item marked as received."
	if status == model.ItemStatusRejected {
		msg = "Item rejected."
	}
	notice(w, r, target, msg)
}

// QuestionsSubmit handles POST /items/{id}/questions.
func (s *Server) QuestionsSubmit(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if !view.HasTab(user.Role, view.TabReceived) {
		s.renderError(w, r, http.StatusForbidden, "Only security officers can publish items.")
		return
	}

	itemID := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		alert(w, r, "/?tab="+view.TabReceived, "Invalid form.")
		return
	}

	description := strings.TrimSpace(r.FormValue("verifiedDescription"))
	var questions []string
	for _, q := range r.PostForm["question"] {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}

	if description == "" || len(questions) == 0 {
		s.renderFeed(w, r, http.StatusBadRequest, view.TabReceived, &modal{
			Kind:   modalQuestions,
			Item:   &model.Item{ID: itemID},
			Values: formValues(r),
			Error:  "Please add a description and at least one question.",
		})
		return
	}

	if err := BackendSession(r.Context()).PostQuestions(r.Context(), itemID, description, questions); err != nil {
		s.backendFailed(w, r, err, "/?tab="+view.TabReceived, "Failed to submit questions.")
		return
	}

	slog.Info("item published", "user", user.ID, "item", itemID, "questions", len(questions))
	notice(w, r, "/?tab="+view.TabReceived, "Questions submitted successfully.")
}
