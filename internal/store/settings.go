package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// Setting keys.
const (
	settingJWTSecret  = "jwt_secret"
	settingSessionKey = "session_key"
)

// GetJWTSecret returns the secret used to sign session cookies, generating
// and storing one on first use.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	return getOrCreateSecret(ctx, db, settingJWTSecret)
}

// GetSessionKey returns the key that encrypts backend credentials at rest,
// generating and storing one on first use.
func GetSessionKey(ctx context.Context, db *sql.DB) (*[32]byte, error) {
	secret, err := getOrCreateSecret(ctx, db, settingSessionKey)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(secret)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("stored session key is malformed")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// GetSetting returns the value stored under key, or "" if there is none.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key, replacing any previous value. An empty
// value deletes the setting.
func SetSetting(ctx context.Context, db *sql.DB, key, value string) error {
	if value == "" {
		if _, err := db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
			return fmt.Errorf("deleting setting %s: %w", key, err)
		}
		return nil
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

// getOrCreateSecret uses INSERT OR IGNORE + re-SELECT so that concurrent
// first starts agree on a single value.
func getOrCreateSecret(ctx context.Context, db *sql.DB, key string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}

	return secret, nil
}
