package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
)

// recorded is one request seen by the fake backend.
type recorded struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Cookie      string
	Body        []byte
}

type fakeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeBackend) calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

// newFakeBackend serves mux and records every request.
func newFakeBackend(t *testing.T, mux http.Handler) *fakeBackend {
	t.Helper()
	f := &fakeBackend{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Cookie:      r.Header.Get("Cookie"),
			Body:        body,
		})
		f.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeBackend, opts ...Option) *Client {
	t.Helper()
	c, err := New(f.URL, append([]Option{WithHTTPClient(f.Client())}, opts...)...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("http://localhost:3000")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/", c.BaseURL())
}

func TestLoginStoresCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			writeJSON(w, http.StatusOK, map[string]string{"message": "Invalid Credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"_id": "u1", "firstName": "Ana", "email": in["email"], "role": "user"})
	})
	mux.HandleFunc("GET /api/users/profile", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("token"); err != nil || c.Value != "abc" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Please login"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_id": "u1", "firstName": "Ana", "role": "user"})
	})
	f := newFakeBackend(t, mux)
	c := newTestClient(t, f)
	ctx := context.Background()

	_, _, err := c.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s, user, err := c.Login(ctx, "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	require.Len(t, s.Cookies(), 1)
	assert.True(t, s.Changed())

	// A restored session sends the stored cookies back.
	restored := c.Session(s.Cookies())
	profile, err := restored.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.FirstName)
	assert.False(t, restored.Changed())

	_, err = c.Session(nil).Profile(ctx)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Please login", Message(err, "fallback"))
}

func TestMergeCookiesReplacesAndExpires(t *testing.T) {
	c, err := New("http://localhost:3000")
	require.NoError(t, err)
	s := c.Session([]*http.Cookie{{Name: "token", Value: "old"}, {Name: "other", Value: "x"}})

	s.mergeCookies([]*http.Cookie{{Name: "token", Value: "new"}})
	assert.Equal(t, "new", s.Cookies()[0].Value)

	s.mergeCookies([]*http.Cookie{{Name: "other", MaxAge: -1}})
	assert.Len(t, s.Cookies(), 1)

	s.mergeCookies([]*http.Cookie{{Name: "unknown", Expires: time.Unix(1, 0)}})
	assert.Len(t, s.Cookies(), 1)
}

func TestReportLostIsSingleMultipartPost(t *testing.T) {
	mux := http.NewServeMux()
	var (
		mu     sync.Mutex
		fields map[string][]string
		files  int
	)
	mux.HandleFunc("POST /api/items/report/lost", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		mu.Lock()
		fields = r.MultipartForm.Value
		files = len(r.MultipartForm.File["images"])
		mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"_id": "i1"})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session([]*http.Cookie{{Name: "token", Value: "abc"}})

	when := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	err := s.ReportItem(context.Background(), Report{
		Kind:        model.ItemStatusLost,
		ItemType:    "Wallet",
		Description: "Brown leather",
		Time:        &when,
		Images: []*imaging.Upload{
			{Filename: "a.jpg", MIME: "image/jpeg", Data: []byte("jpeg")},
		},
	})
	require.NoError(t, err)

	calls := f.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.True(t, strings.HasPrefix(calls[0].ContentType, "multipart/form-data"))
	assert.Equal(t, "token=abc", calls[0].Cookie)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Wallet"}, fields["itemType"])
	assert.Equal(t, []string{"Brown leather"}, fields["description"])
	assert.Equal(t, []string{model.ItemStatusSubmitted}, fields["status"])
	assert.Equal(t, []string{"2025-03-01T14:30:00Z"}, fields["time"])
	assert.NotContains(t, fields, "location")
	assert.Equal(t, 1, files)
}

func TestReportFoundSendsFoundStatus(t *testing.T) {
	mux := http.NewServeMux()
	var (
		mu     sync.Mutex
		status []string
	)
	mux.HandleFunc("POST /api/items/report/found", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		mu.Lock()
		status = r.MultipartForm.Value["status"]
		mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"_id": "i2"})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)

	err := s.ReportItem(context.Background(), Report{
		Kind:        model.ItemStatusFound,
		ItemType:    "Phone",
		Description: "Black",
		Location:    "Library",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{model.ItemStatusFound}, status)
}

func TestReportRejectsUnknownKind(t *testing.T) {
	c, err := New("http://localhost:3000")
	require.NoError(t, err)
	err = c.Session(nil).ReportItem(context.Background(), Report{Kind: "stolen"})
	assert.Error(t, err)
}

func TestItemByToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/token/{token}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("token") {
		case "ITEM-12345678":
			writeJSON(w, http.StatusOK, map[string]any{"item": map[string]any{"_id": "i1", "status": "submitted", "token": "ITEM-12345678"}})
		case "ITEM-EMPTY":
			writeJSON(w, http.StatusOK, map[string]any{})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Item not found"})
		}
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)
	ctx := context.Background()

	item, err := s.ItemByToken(ctx, "ITEM-12345678")
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusSubmitted, item.Status)

	calls := f.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/api/items/token/ITEM-12345678", calls[0].Path)

	_, err = s.ItemByToken(ctx, "ITEM-EMPTY")
	assert.True(t, IsNotFound(err))

	_, err = s.ItemByToken(ctx, "ITEM-00000000")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Item not found", Message(err, ""))
}

func TestItemsByStatusForbidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/status/{status}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("status") == "received" {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"_id": "i1", "itemType": "Keys", "status": r.PathValue("status")}})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)

	items, err := s.ItemsByStatus(context.Background(), "lost")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Keys", items[0].ItemType)

	_, err = s.ItemsByStatus(context.Background(), "received")
	assert.True(t, IsForbidden(err))
}

func TestItemsByStatusAcceptsUserIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/status/received", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{
			"_id":        "i1",
			"itemType":   "Phone",
			"status":     "received",
			"foundBy":    "65f0aa",
			"receivedBy": "65f0bb",
			"reportedBy": map[string]any{"_id": "u2", "firstName": "Bor"},
		}})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)

	items, err := s.ItemsByStatus(context.Background(), model.ItemStatusReceived)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "65f0aa", items[0].FoundBy.ID)
	assert.Nil(t, items[0].FoundBy.User)
	assert.Equal(t, "65f0bb", items[0].ReceivedBy.Name())
	assert.Equal(t, "Bor", items[0].ReportedBy.Name())
}

func TestReviewAndQuestions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/items/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("POST /api/items/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)
	ctx := context.Background()

	require.NoError(t, s.ReviewItem(ctx, "i1", model.ItemStatusReceived, "looks fine"))
	assert.Error(t, s.ReviewItem(ctx, "i1", model.ItemStatusClaimed, ""))
	require.NoError(t, s.PostQuestions(ctx, "i1", "Black phone", []string{"Case colour?", "", "Wallpaper?"}))

	calls := f.calls()
	require.Len(t, calls, 2)
	assert.JSONEq(t, `{"status":"received","notes":"looks fine"}`, string(calls[0].Body))
	assert.Equal(t, "/api/items/i1/verify", calls[1].Path)
	assert.JSONEq(t, `{"verifiedDescription":"Black phone","questions":["Case colour?","Wallpaper?"]}`, string(calls[1].Body))
}

func TestRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /request/{box}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{
			"_id":         "r1",
			"requestType": "claim",
			"status":      "pending",
			"itemId":      map[string]any{"_id": "i1", "itemType": "Phone"},
			"answers":     []string{`[{"question":"Colour?","answer":"Black"}]`},
		}})
	})
	mux.HandleFunc("POST /request/send/claim/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "sent"})
	})
	mux.HandleFunc("POST /request/send/return/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "sent"})
	})
	mux.HandleFunc("POST /api/items/verify/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("POST /request/cancel/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "cancelled"})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)
	ctx := context.Background()

	reqs, err := s.Requests(ctx, InboxReceive)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Phone", reqs[0].Item.ItemType)
	assert.Equal(t, "Black", reqs[0].Answers.For(0))

	_, err = s.Requests(ctx, "outbox")
	assert.Error(t, err)

	require.NoError(t, s.SendClaim(ctx, Claim{
		ItemID:  "i1",
		Answers: []model.Answer{{Question: "Colour?", Answer: "Black"}},
	}))
	require.NoError(t, s.SendReturn(ctx, Return{
		ItemID: "i2",
		Images: []*imaging.Upload{{Filename: "p.jpg", MIME: "image/jpeg", Data: []byte("x")}},
	}))
	require.NoError(t, s.RespondToRequest(ctx, "r1", ResponseApproved))
	assert.Error(t, s.RespondToRequest(ctx, "r1", "maybe"))
	require.NoError(t, s.CancelRequest(ctx, "r2"))

	calls := f.calls()
	require.Len(t, calls, 5)
	assert.Contains(t, string(calls[1].Body), `[{"question":"Colour?","answer":"Black"}]`)
	assert.Equal(t, "/request/send/return/i2", calls[2].Path)
	assert.JSONEq(t, `{"status":"approved"}`, string(calls[3].Body))
	assert.Equal(t, "/request/cancel/r2", calls[4].Path)
}

func TestAdminEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"_id": "u1", "email": "a@x.org", "role": "user"}}})
	})
	mux.HandleFunc("GET /api/admin/users/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"_id": "u2", "email": r.URL.Query().Get("email")}}})
	})
	mux.HandleFunc("PUT /api/admin/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Cannot change own role"})
	})
	mux.HandleFunc("DELETE /api/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@x.org", users[0].Email)

	found, err := s.SearchUsers(ctx, "b@x.org")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b@x.org", found[0].Email)

	err = s.UpdateUserRole(ctx, "u1", model.RoleSecurityGuard)
	require.Error(t, err)
	assert.Equal(t, "Cannot change own role", Message(err, ""))
	assert.Error(t, s.UpdateUserRole(ctx, "u1", "janitor"))

	require.NoError(t, s.DeleteUser(ctx, "u1"))
}

func TestMetricsRecordCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/my-item-tokens", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"_id": "i1", "token": "ITEM-1"}})
	})
	f := newFakeBackend(t, mux)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := newTestClient(t, f, WithMetrics(m)).Session(nil)

	tokens, err := s.MyItemTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "findit_backend_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, total)
}

func TestContextCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/profile", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	f := newFakeBackend(t, mux)
	s := newTestClient(t, f).Session(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Profile(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "nope", errorMessage([]byte(`{"message":"nope"}`)))
	assert.Equal(t, "bad", errorMessage([]byte(`{"error":"bad"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte("plain text\n")))
	assert.Equal(t, "", errorMessage([]byte("<html>oops</html>")))
}
