package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resetDateLayout is the layout of the reset_date claim.
const resetDateLayout = "2006-01-02"

// AgentClaims are the claims carried by an agent token.
type AgentClaims struct {
	// Identifier is the agent symbol the token was issued to.
	Identifier string `json:"identifier"`
	Version    string `json:"version,omitempty"`

	// ResetDate is the universe reset the token belongs to. Tokens stop
	// working after the next reset.
	ResetDate string `json:"reset_date,omitempty"`

	jwt.RegisteredClaims
}

// Reset parses ResetDate. It returns false when the claim is absent or
// unparseable.
func (c *AgentClaims) Reset() (time.Time, bool) {
	if c.ResetDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(resetDateLayout, c.ResetDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Expired reports whether the token carries an exp claim that is before now.
func (c *AgentClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// ParseAgentToken decodes the claims of an agent token without verifying
// its signature.
func ParseAgentToken(token string) (*AgentClaims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrMissingCredentials
	}

	claims := &AgentClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, wrapJWTError(err)
	}
	if claims.Identifier == "" && claims.Subject == "" {
		return nil, fmt.Errorf("%w: no identifier claim", ErrTokenMalformed)
	}
	return claims, nil
}

func wrapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
}
