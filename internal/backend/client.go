// Package backend is the client for the lost-and-found REST API. The API is
// owned by a separate service; this package only knows its endpoints and
// payload shapes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Client talks to one backend base URL. It is safe for concurrent use; all
// per-user state lives in Session.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	metrics *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithMetrics records call metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL, e.g. "http://localhost:3000/".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https: %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	// Redirects would drop the request body on 303 and hide 401s.
	c.http.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c, nil
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Session is one user's view of the backend: the cookies the backend set at
// login, sent back on every call. Cookies set by later responses are merged
// in and the session is marked changed so the caller can persist them.
type Session struct {
	client *Client

	mu      sync.Mutex
	cookies []*http.Cookie
	changed bool
}

// Session returns a session carrying the given backend cookies.
func (c *Client) Session(cookies []*http.Cookie) *Session {
	cp := make([]*http.Cookie, len(cookies))
	copy(cp, cookies)
	return &Session{client: c, cookies: cp}
}

// Cookies returns the current backend cookies.
func (s *Session) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]*http.Cookie, len(s.cookies))
	copy(cp, s.cookies)
	return cp
}

// Changed reports whether the backend set or cleared cookies since the
// session was created.
func (s *Session) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Session) mergeCookies(set []*http.Cookie) {
	if len(set) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, nc := range set {
		idx := -1
		for i, oc := range s.cookies {
			if oc.Name == nc.Name {
				idx = i
				break
			}
		}
		expired := nc.MaxAge < 0 || (!nc.Expires.IsZero() && nc.Expires.Before(time.Now())) || nc.Value == ""
		switch {
		case expired && idx >= 0:
			s.cookies = append(s.cookies[:idx], s.cookies[idx+1:]...)
		case expired:
			continue
		case idx >= 0:
			s.cookies[idx] = nc
		default:
			s.cookies = append(s.cookies, nc)
		}
		s.changed = true
	}
}

// call describes one backend request.
type call struct {
	name        string // metrics label, e.g. "items.status"
	method      string
	path        string // relative to the base URL, no leading slash
	query       url.Values
	body        io.Reader
	contentType string
}

// jsonCall builds a call with a JSON body.
func jsonCall(name, method, path string, payload any) (call, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return call{}, fmt.Errorf("encoding %s request: %w", name, err)
	}
	return call{
		name:        name,
		method:      method,
		path:        path,
		body:        bytes.NewReader(data),
		contentType: "application/json",
	}, nil
}

// do executes the call and decodes a 2xx JSON response into out (if non-nil).
func (s *Session) do(ctx context.Context, cl call, out any) error {
	u := s.client.baseURL.JoinPath(cl.path)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), cl.body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", cl.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	for _, c := range s.Cookies() {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	start := time.Now()
	resp, err := s.client.http.Do(req)
	if err != nil {
		s.client.metrics.observe(cl.name, "error", time.Since(start).Seconds())
		return fmt.Errorf("%s: %w", cl.name, err)
	}
	defer resp.Body.Close()
	s.client.metrics.observe(cl.name, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	s.mergeCookies(resp.Cookies())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		be := &Error{StatusCode: resp.StatusCode, Endpoint: cl.name}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		be.Message = errorMessage(body)
		slog.Debug("backend call failed", "endpoint", cl.name, "status", resp.StatusCode, "message", be.Message)
		return be
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", cl.name, err)
	}
	return nil
}

// errorMessage extracts "message" or "error" from a JSON error body, or
// returns a short plain-text body as-is.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
