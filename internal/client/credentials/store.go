// Package credentials holds the access token used to authorize outbound
// requests. The refresh token never passes through here: it lives in a
// protected cookie managed by the backend and the cookie jar.
package credentials

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store is the single source of truth for the current access token.
// Implementations must make Set followed by Get atomic: a Get that starts
// after Set returns observes the new token.
type Store interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string, opts Options) error
	Clear(ctx context.Context) error
}

// Options mirror the attributes of the readable access-token cookie.
type Options struct {
	Path     string
	SameSite http.SameSite
	Secure   bool
	// ExpiresAt zero means the token lives as long as the session.
	ExpiresAt time.Time
}

// DefaultOptions returns path "/" with strict same-site policy. secure
// should be true whenever the backend is served over HTTPS.
func DefaultOptions(secure bool) Options {
	return Options{Path: "/", SameSite: http.SameSiteStrictMode, Secure: secure}
}

// ForToken fills ExpiresAt from the token's exp claim, if it has one.
func (o Options) ForToken(token string) Options {
	if o.ExpiresAt.IsZero() {
		o.ExpiresAt = ExpiryFromToken(token)
	}
	return o
}

func (o Options) normalized() Options {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 || o.SameSite == http.SameSiteDefaultMode {
		o.SameSite = http.SameSiteStrictMode
	}
	return o
}

func (o Options) expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}

// ExpiryFromToken reads the exp claim of a JWT without verifying its
// signature. Opaque tokens and tokens without exp yield the zero time.
func ExpiryFromToken(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
