package auth

import (
	"encoding/hex"
	"io"
	"time"
)

// eternalTokenBytes is the entropy of a stored token: 24 random bytes,
// hex-encoded to a 48-character value.
const eternalTokenBytes = 24

// EternalToken is a server-stored, revocable, non-expiring bearer credential
// owned by an actor. It stays valid until explicitly deleted.
type EternalToken struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserID    int64     `json:"user"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateEternalToken draws a new opaque token value from the given random
// source.
func GenerateEternalToken(random io.Reader) (string, error) {
	buf := make([]byte, eternalTokenBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
