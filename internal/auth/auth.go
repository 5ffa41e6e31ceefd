// Package auth resolves the caller's identity from a bearer token.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a presented token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Identity is a verified caller. Admin is set from the appAdmin claim and
// gates moderation-only endpoints on top of normal authentication.
type Identity struct {
	UID   string
	Admin bool
}

// Provider verifies bearer tokens.
type Provider interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenClaims is the expected claim set.
type TokenClaims struct {
	UserID   string `json:"uid"`
	AppAdmin bool   `json:"appAdmin,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HMAC-signed tokens.
type JWTProvider struct {
	secret []byte
}

// NewJWTProvider creates a provider around the shared signing secret.
func NewJWTProvider(secret []byte) *JWTProvider {
	return &JWTProvider{secret: secret}
}

// Verify parses and validates raw, returning the caller identity.
func (p *JWTProvider) Verify(_ context.Context, raw string) (*Identity, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UID: claims.UserID, Admin: claims.AppAdmin}, nil
}

// FromRequest extracts and verifies the Authorization bearer token. A
// missing or invalid token yields a nil identity (anonymous, not an error)
// since several endpoints permit anonymous reads.
func FromRequest(ctx context.Context, p Provider, r *http.Request) *Identity {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}
	id, err := p.Verify(ctx, parts[1])
	if err != nil {
		return nil
	}
	return id
}

type ctxKey struct{}

// WithIdentity stores id in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by the middleware, or nil for
// anonymous callers.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
