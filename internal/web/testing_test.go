package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/db"
	"github.com/erazemk/findit/internal/store"
)

const backendCookie = "backend-abc"

// fakeAPI is an in-memory stand-in for the lost-and-found backend.
type fakeAPI struct {
	mu        sync.Mutex
	role      string
	expired   bool
	rotate    bool
	calls     []string
	reports   []url.Values
	items     map[string][]map[string]any
	forbidden map[string]bool
	tokens    map[string]map[string]any
	requests  map[string][]map[string]any
	users     []map[string]any
}

func newFakeAPI(role string) *fakeAPI {
	return &fakeAPI{
		role:      role,
		items:     map[string][]map[string]any{},
		forbidden: map[string]bool{},
		tokens:    map[string]map[string]any{},
		requests:  map[string][]map[string]any{},
	}
}

func (f *fakeAPI) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) count(call string) int {
	n := 0
	for _, c := range f.called() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func apiJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) user(email string) map[string]any {
	return map[string]any{"_id": "u1", "firstName": "Ana", "lastName": "Novak", "email": email, "role": f.role}
}

func (f *fakeAPI) authed(r *http.Request) bool {
	c, err := r.Cookie("token")
	return err == nil && strings.HasPrefix(c.Value, backendCookie) && !f.expired
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if r.URL.Path == "/api/auth/login" {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			apiJSON(w, http.StatusOK, map[string]string{"message": "Invalid Credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: backendCookie, Path: "/"})
		apiJSON(w, http.StatusOK, f.user(in["email"]))
		return
	}
	if r.URL.Path == "/api/auth/register" {
		apiJSON(w, http.StatusCreated, map[string]string{"message": "created"})
		return
	}
	if !f.authed(r) {
		apiJSON(w, http.StatusUnauthorized, map[string]string{"message": "Please login"})
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/profile", func(w http.ResponseWriter, r *http.Request) {
		if f.rotate {
			http.SetCookie(w, &http.Cookie{Name: "token", Value: backendCookie + "-rotated", Path: "/"})
		}
		apiJSON(w, http.StatusOK, f.user("ana@example.com"))
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", MaxAge: -1, Path: "/"})
		apiJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	})
	mux.HandleFunc("GET /api/items/status/{status}", func(w http.ResponseWriter, r *http.Request) {
		status := r.PathValue("status")
		if f.forbidden[status] {
			apiJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied"})
			return
		}
		items := f.items[status]
		if items == nil {
			items = []map[string]any{}
		}
		apiJSON(w, http.StatusOK, items)
	})
	mux.HandleFunc("POST /api/items/report/{kind}", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			apiJSON(w, http.StatusBadRequest, map[string]string{"message": "bad form"})
			return
		}
		f.reports = append(f.reports, r.MultipartForm.Value)
		apiJSON(w, http.StatusCreated, map[string]string{"message": "reported"})
	})
	mux.HandleFunc("GET /api/items/token/{token}", func(w http.ResponseWriter, r *http.Request) {
		item, ok := f.tokens[r.PathValue("token")]
		if !ok {
			apiJSON(w, http.StatusNotFound, map[string]string{"message": "Item not found"})
			return
		}
		apiJSON(w, http.StatusOK, map[string]any{"item": item})
	})
	mux.HandleFunc("GET /api/items/my-item-tokens", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, []map[string]any{{"_id": "i9", "itemType": "Umbrella", "status": "submitted", "token": "ITEM-UMBRELLA"}})
	})
	mux.HandleFunc("PUT /api/items/{id}/review", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("POST /api/items/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /request/{box}", func(w http.ResponseWriter, r *http.Request) {
		reqs := f.requests[r.PathValue("box")]
		if reqs == nil {
			reqs = []map[string]any{}
		}
		apiJSON(w, http.StatusOK, reqs)
	})
	mux.HandleFunc("POST /request/cancel/{id}", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]string{"message": "cancelled"})
	})
	mux.HandleFunc("POST /api/items/verify/{id}", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("POST /request/send/{kind}/{id}", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusCreated, map[string]string{"message": "sent"})
	})
	mux.HandleFunc("GET /api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]any{"success": true, "data": f.users})
	})
	mux.HandleFunc("PUT /api/admin/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("DELETE /api/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.ServeHTTP(w, r)
}

type testEnv struct {
	t      *testing.T
	api    *fakeAPI
	router http.Handler
	srv    *Server
	cookie *http.Cookie
}

func newTestEnv(t *testing.T, role string) *testEnv {
	t.Helper()
	api := newFakeAPI(role)
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	client, err := backend.New(ts.URL, backend.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	database := db.NewTestDB(t)
	key := new([32]byte)
	copy(key[:], "0123456789abcdef0123456789abcdef")

	opts := Options{
		DB:         database,
		Backend:    client,
		JWTSecret:  "test-secret",
		SessionKey: key,
	}
	router, err := NewRouter(opts)
	require.NoError(t, err)
	srv, err := NewServer(opts)
	require.NoError(t, err)

	return &testEnv{t: t, api: api, router: router, srv: srv}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (e *testEnv) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

// postMultipart posts fields and files (field name to file contents).
func (e *testEnv) postMultipart(target string, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(e.t, err)
		_, err = io.Copy(fw, bytes.NewReader(data))
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// login signs in through the login form and keeps the session cookie.
func (e *testEnv) login() *httptest.ResponseRecorder {
	e.t.Helper()
	rec := e.postForm("/login", url.Values{"email": {"ana@example.com"}, "password": {"secret"}})
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			e.cookie = c
		}
	}
	require.NotNil(e.t, e.cookie)
	return rec
}

func (e *testEnv) session() *store.Session {
	e.t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(e.cookie)
	_, sess := e.srv.loadSession(r)
	return sess
}

// testPNG returns a small valid PNG image.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
