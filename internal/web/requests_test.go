package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/findit/internal/model"
)

func pendingRequest(id string) map[string]any {
	return map[string]any{
		"_id":         id,
		"requestType": "claim",
		"status":      "pending",
		"itemId":      map[string]any{"_id": "i1", "itemType": "Phone", "questions": []string{"Colour?"}},
		"requestedBy": map[string]any{"_id": "u2", "firstName": "Bor"},
		"requestedTo": map[string]any{"_id": "u3", "firstName": "Cene"},
		"answers":     []string{`[{"question":"Colour?","answer":"Black"}]`},
		"createdAt":   "2025-03-01T10:00:00Z",
	}
}

func TestRequestCardActions(t *testing.T) {
	e := newTestEnv(t, model.RoleUser)
	e.login()
	e.api.set(func(f *fakeAPI) {
		f.requests["send"] = []map[string]any{pendingRequest("r1")}
		resolved := pendingRequest("r3")
		resolved["status"] = "accepted"
		f.requests["receive"] = []map[string]any{pendingRequest("r2"), resolved}
	})

	body := e.get("/requests?tab=send").Body.String()
	assert.Contains(t, body, "Cancel Request")
	assert.Contains(t, body, `action="/requests/r1/cancel"`)
	assert.Contains(t, body, "You requested Cene to claim this item")
	assert.NotContains(t, body, `action="/requests/r1/accept"`)

	body = e.get("/requests?tab=receive").Body.String()
	assert.Contains(t, body, `action="/requests/r2/accept"`)
	assert.Contains(t, body, `action="/requests/r2/reject"`)
	assert.Contains(t, body, "Bor claimed this item")
	assert.Contains(t, body, "Black")
	assert.Contains(t, body, "Accepted")
	assert.NotContains(t, body, `action="/requests/r3/`)
	assert.NotContains(t, body, "Cancel Request")
}

func TestRequestActionsPostToBackend(t *testing.T) {
	e := newTestEnv(t, model.RoleUser)
	e.login()

	rec := e.postForm("/requests/r1/cancel", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "tab=send")
	assert.Equal(t, 1, e.api.count("POST /request/cancel/r1"))

	rec = e.postForm("/requests/r2/accept", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "tab=receive")
	rec = e.postForm("/requests/r2/reject", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 2, e.api.count("POST /api/items/verify/r2"))

	rec = e.postForm("/requests/r2/archive", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
