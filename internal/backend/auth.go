package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
)

// Login authenticates with email and password. On success the backend sets
// its session cookies, which are carried by the returned Session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, *model.User, error) {
	s := c.Session(nil)
	cl, err := jsonCall("auth.login", http.MethodPost, "api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, nil, err
	}

	var raw json.RawMessage
	if err := s.do(ctx, cl, &raw); err != nil {
		switch StatusCode(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &msg) == nil && strings.EqualFold(msg.Message, "Invalid Credentials") {
		return nil, nil, ErrInvalidCredentials
	}

	user, _ := decodeUser(raw)
	if user == nil {
		if user, err = s.Profile(ctx); err != nil {
			return nil, nil, err
		}
	}
	return s, user, nil
}

// Registration is the signup form as the backend expects it.
type Registration struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Department   string
	Designation  string
	Gender       string
	ID           string
	ProfilePhoto *imaging.Upload
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, r Registration) error {
	f := NewForm().
		Field("firstName", r.FirstName).
		Field("lastName", r.LastName).
		Field("email", r.Email).
		Field("password", r.Password).
		Field("department", r.Department).
		Field("designation", r.Designation).
		Field("gender", r.Gender).
		Field("id", r.ID).
		Image("profilePhoto", r.ProfilePhoto)
	cl, err := f.call("auth.register", "api/auth/register")
	if err != nil {
		return err
	}
	return c.Session(nil).do(ctx, cl, nil)
}

// Logout ends the backend session.
func (s *Session) Logout(ctx context.Context) error {
	return s.do(ctx, call{name: "auth.logout", method: http.MethodPost, path: "logout"}, nil)
}

// Profile returns the logged in user.
func (s *Session) Profile(ctx context.Context) (*model.User, error) {
	var raw json.RawMessage
	if err := s.do(ctx, call{name: "users.profile", method: http.MethodGet, path: "api/users/profile"}, &raw); err != nil {
		return nil, err
	}
	user, err := decodeUser(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if user == nil {
		return nil, &Error{StatusCode: http.StatusUnauthorized, Endpoint: "users.profile", Message: "no user in profile response"}
	}
	return user, nil
}

// decodeUser accepts a bare user object or one wrapped as {"user": ...}.
// It returns nil when the payload carries no user id.
func decodeUser(raw json.RawMessage) (*model.User, error) {
	var wrapped struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.User != nil && wrapped.User.ID != "" {
		return wrapped.User, nil
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, nil
	}
	return &u, nil
}
