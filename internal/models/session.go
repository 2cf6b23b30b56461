package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload for viewer session tokens. The token is
// transport plumbing for the in-memory session: possession alone is not
// enough, the session ID must still be live in the registry.
type SessionClaims struct {
	SessionID string      `json:"session_id"`
	Grant     AccessGrant `json:"grant"`
	jwt.RegisteredClaims
}

// SessionToken is returned on successful viewer login.
type SessionToken struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	IssuedAt  time.Time   `json:"issued_at"`
	Grant     AccessGrant `json:"grant"`
}
