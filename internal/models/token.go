package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token represents a stored access token bound to a user. The raw token
// value is never persisted; only its SHA-256 hex hash and an 8-character
// display prefix are stored.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	Prefix    string    `json:"prefix"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewToken creates a Token from a raw token string, bound to userID and
// expiring after ttl. A zero ttl produces a non-expiring token.
func NewToken(userID, rawToken string, ttl time.Duration) *Token {
	now := time.Now().UTC()
	prefix := rawToken
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	t := &Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: HashToken(rawToken),
		Prefix:    prefix,
		CreatedAt: now,
	}
	if ttl > 0 {
		t.ExpiresAt = now.Add(ttl)
	}
	return t
}

// GenerateToken produces a new random token in the format pa_<44 url-safe
// base64 chars>.
func GenerateToken() (string, error) {
	b := make([]byte, 33) // 33 bytes → 44 base64url chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "pa_" + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken computes the SHA-256 hex digest of a raw token.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// Expired reports whether the token is past its expiry at the given time.
// Tokens without an expiry never expire.
func (t *Token) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.After(t.ExpiresAt)
}
