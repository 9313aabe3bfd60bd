package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Setting keys for generated secrets.
const (
	SettingJWTSecret  = "jwt_secret"
	SettingSessionKey = "session_key"
)

// GetSecret returns the secret stored under key. If none exists, a random
// 32-byte hex secret is generated and stored first.
// INSERT OR IGNORE followed by a re-SELECT avoids a race on concurrent startup.
func GetSecret(ctx context.Context, db DBTX, key string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, hex.EncodeToString(buf),
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
