package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

// Session is a signed-in browser (or CLI) session. Cookies are the
// credentials the backend issued at login; they never leave the server.
type Session struct {
	ID        string
	UserID    string
	Email     string
	Cookies   []*http.Cookie
	CreatedAt time.Time
	ExpiresAt time.Time
}

// storedCookie is the persisted subset of http.Cookie.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// CreateSession stores a new session. The backend cookies are encrypted
// with key before they are written.
func CreateSession(ctx context.Context, db *sql.DB, key *[32]byte, s *Session) error {
	blob, err := sealCookies(key, s.Cookies)
	if err != nil {
		return err
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, email, backend_cookies, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Email, blob, s.CreatedAt, s.CreatedAt, s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	// Opportunistically drop expired sessions.
	_, _ = db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())

	return nil
}

// GetSession returns the session with the given id. Missing and expired
// sessions both return nil without an error.
func GetSession(ctx context.Context, db *sql.DB, key *[32]byte, id string) (*Session, error) {
	s := &Session{ID: id}
	var blob []byte
	err := db.QueryRowContext(ctx,
		`SELECT user_id, email, backend_cookies, created_at, expires_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&s.UserID, &s.Email, &blob, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}

	s.Cookies, err = openCookies(key, blob)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSessionCookies replaces the stored backend cookies, e.g. after the
// backend rotated its session cookie.
func UpdateSessionCookies(ctx context.Context, db *sql.DB, key *[32]byte, id string, cookies []*http.Cookie) error {
	blob, err := sealCookies(key, cookies)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE sessions SET backend_cookies = ?, updated_at = ? WHERE id = ?`,
		blob, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating session cookies: %w", err)
	}
	return nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func DeleteSession(ctx context.Context, db *sql.DB, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired sessions and returns how many were removed.
func PurgeExpiredSessions(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}

func sealCookies(key *[32]byte, cookies []*http.Cookie) ([]byte, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	plain, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding cookies: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

func openCookies(key *[32]byte, blob []byte) ([]*http.Cookie, error) {
	if len(blob) < 24 {
		return nil, errors.New("session cookies are corrupt")
	}
	var nonce [24]byte
	copy(nonce[:], blob[:24])
	plain, ok := secretbox.Open(nil, blob[24:], &nonce, key)
	if !ok {
		return nil, errors.New("session cookies cannot be decrypted")
	}

	var stored []storedCookie
	if err := json.Unmarshal(plain, &stored); err != nil {
		return nil, fmt.Errorf("decoding cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Domain:   sc.Domain,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		})
	}
	return cookies, nil
}
