package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the Supabase access-token claims this service reads.
type Claims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// MetadataString returns user_metadata[key] when it is a string.
func (c *Claims) MetadataString(key string) string {
	if c == nil || c.UserMetadata == nil {
		return ""
	}
	s, _ := c.UserMetadata[key].(string)
	return s
}

// Verifier accepts HS256 tokens signed with the project secret and RS256 tokens from JWKS.
type Verifier struct {
	jwks   *Provider
	secret []byte
}

func NewVerifier(jwks *Provider, hsSecret string) *Verifier {
	return &Verifier{jwks: jwks, secret: []byte(hsSecret)}
}

func (v *Verifier) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, fmt.Errorf("HS256 token received but SUPABASE_JWT_SECRET is not configured")
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			if v.jwks == nil {
				return nil, fmt.Errorf("RS256 token received but no JWKS provider is configured")
			}
			return v.jwks.KeyFunc(ctx)(token)
		}
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return claims, nil
}
