package auth

import (
	"context"
	"errors"
	"time"
)

// ErrNoToken is returned when a source has nothing to offer.
var ErrNoToken = errors.New("auth: no token available")

// Token is a credential for the Authorization header.
type Token struct {
	// Value is the raw credential.
	Value string
	// Type is the authorization scheme, "Bearer" when empty.
	Type string
	// ExpiresAt is zero for tokens that never expire.
	ExpiresAt time.Time
}

// Scheme returns the authorization scheme.
func (t *Token) Scheme() string {
	if t.Type == "" {
		return "Bearer"
	}
	return t.Type
}

// Header returns the Authorization header value.
func (t *Token) Header() string {
	return t.Scheme() + " " + t.Value
}

// Valid reports whether the token is usable at now for at least skew more.
func (t *Token) Valid(now time.Time, skew time.Duration) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return t.ExpiresAt.IsZero() || now.Add(skew).Before(t.ExpiresAt)
}

// TokenSource supplies tokens for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (*Token, error)
}

// TokenSourceFunc adapts an ordinary function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (*Token, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (*Token, error) {
	return f(ctx)
}

// Invalidator is implemented by sources that can drop a rejected token.
type Invalidator interface {
	Invalidate()
}

// Static returns a source that always yields value with the given scheme.
func Static(scheme, value string) TokenSource {
	tok := &Token{Value: value, Type: scheme}
	return TokenSourceFunc(func(context.Context) (*Token, error) {
		if value == "" {
			return nil, ErrNoToken
		}
		return tok, nil
	})
}
