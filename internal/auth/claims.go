package auth

import "time"

// Claims represents the claims stored in an issued token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`

	// Standard PASETO claims
	Issuer   string    `json:"iss"`
	Audience string    `json:"aud"`
	Subject  string    `json:"sub"`
	IssuedAt time.Time `json:"iat"`
}
