package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cloudsquares/photoservice/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Verifier validates HS256 access tokens against a shared secret and
// extracts the caller's identity. Stateless; constructed once at startup.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates the token and returns the auth context.
// Any verification failure, including a non-access token type, yields
// ErrInvalidToken; callers never see parser internals.
func (v *Verifier) Verify(tokenString string) (*domain.AuthContext, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	ctx := &domain.AuthContext{
		UserID:    claimString(claims, "sub"),
		AgencyID:  claimString(claims, "agency_id"),
		Role:      claimString(claims, "role"),
		TokenType: claimString(claims, "type"),
	}
	if ctx.TokenType != domain.TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return ctx, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
