// Package session adapts session stores to the router's SessionLookup.
// The router only needs to know whether a request carries a user; how and
// where sessions live is up to the Store.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mickamy/kanboard/router"
)

// ErrEmptyUser is returned by Create when the user identifier is empty.
var ErrEmptyUser = errors.New("session: user id cannot be empty")

// Store persists session tokens.
type Store interface {
	// Get returns the user of token. ok is false when the token is unknown
	// or expired; err is reserved for store failures.
	Get(ctx context.Context, token string) (userID string, ok bool, err error)
	// Create starts a session for userID and returns its token.
	Create(ctx context.Context, userID string) (token string, err error)
	// Delete ends the session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// DefaultCookieName is used when Cookie.Name is empty.
const DefaultCookieName = "sessionid"

// Cookie looks up sessions by a cookie holding the token.
type Cookie struct {
	Name   string
	Store  Store
	TTL    time.Duration
	Logger logrus.FieldLogger
}

var _ router.SessionLookup = Cookie{}

func (c Cookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// UserID implements router.SessionLookup. Store failures are logged and
// treated as no session.
func (c Cookie) UserID(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.name())
	if err != nil || ck.Value == "" {
		return "", false
	}
	user, ok, err := c.Store.Get(r.Context(), ck.Value)
	if err != nil {
		if c.Logger != nil {
			c.Logger.WithError(err).Warn("session lookup failed")
		}
		return "", false
	}
	return user, ok
}

// Issue creates a session for userID and returns the cookie carrying its
// token.
func (c Cookie) Issue(ctx context.Context, userID string) (*http.Cookie, error) {
	token, err := c.Store.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	ck := &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.TTL > 0 {
		ck.MaxAge = int(c.TTL / time.Second)
	}
	return ck, nil
}

// Revoke deletes the session of r, if any, and returns a cookie clearing
// it on the client.
func (c Cookie) Revoke(r *http.Request) (*http.Cookie, error) {
	if ck, err := r.Cookie(c.name()); err == nil && ck.Value != "" {
		if err := c.Store.Delete(r.Context(), ck.Value); err != nil {
			return nil, err
		}
	}
	return &http.Cookie{Name: c.name(), Value: "", Path: "/", MaxAge: -1}, nil
}
