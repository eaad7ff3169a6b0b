// Package auth provides token issuance and verification for the catalog API.
package auth

import (
	"encoding/json/v2"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/librisapp/libris-server/internal/domain"
)

const (
	tokenIssuer   = "libris-server"
	tokenAudience = "libris-client"

	// PASETO v4 symmetric keys are 256 bits.
	keyBytesSize = 32
)

// TokenService issues and verifies PASETO v4.local tokens binding a
// username to a user ID.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
}

// NewTokenService creates a token service from the server's symmetric key.
func NewTokenService(key []byte) (*TokenService, error) {
	if len(key) != keyBytesSize {
		return nil, fmt.Errorf("token key must be exactly %d bytes, got %d", keyBytesSize, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{symmetricKey: symmetricKey}, nil
}

// IssueToken creates an encrypted token for the user.
// Tokens carry no expiration: they are valid until the client discards them.
func (s *TokenService) IssueToken(user *domain.User) (string, error) {
	token := paseto.NewToken()

	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetIssuedAt(time.Now())

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("username", user.Username)
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("user_id", user.ID)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken verifies and decrypts a token.
// Returns the claims if valid, or an error otherwise.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	// Tokens carry no expiration claim, so the default expiry rule would
	// reject every token this service issues.
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	return &claims, nil
}
