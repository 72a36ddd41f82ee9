package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/erazemk/findit/internal/model"
)

// envelope is the admin API's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// admin runs an admin call and unwraps the envelope into out.
func (s *Session) admin(ctx context.Context, cl call, out any) error {
	var env envelope
	if err := s.do(ctx, cl, &env); err != nil {
		return err
	}
	if !env.Success {
		return &Error{StatusCode: http.StatusUnprocessableEntity, Endpoint: cl.name, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", cl.name, err)
	}
	return nil
}

// ListUsers returns every registered user.
func (s *Session) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	cl := call{name: "admin.users", method: http.MethodGet, path: "api/admin/users"}
	if err := s.admin(ctx, cl, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers finds users by email.
func (s *Session) SearchUsers(ctx context.Context, email string) ([]model.User, error) {
	var users []model.User
	cl := call{
		name:   "admin.search",
		method: http.MethodGet,
		path:   "api/admin/users/search",
		query:  url.Values{"email": {email}},
	}
	if err := s.admin(ctx, cl, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserRole changes a user's role.
func (s *Session) UpdateUserRole(ctx context.Context, userID, role string) error {
	if !model.ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	cl, err := jsonCall("admin.role", http.MethodPut, "api/admin/users/"+url.PathEscape(userID)+"/role", map[string]string{
		"role": role,
	})
	if err != nil {
		return err
	}
	return s.admin(ctx, cl, nil)
}

// DeleteUser removes a user account.
func (s *Session) DeleteUser(ctx context.Context, userID string) error {
	cl := call{name: "admin.delete", method: http.MethodDelete, path: "api/admin/users/" + url.PathEscape(userID)}
	return s.admin(ctx, cl, nil)
}
