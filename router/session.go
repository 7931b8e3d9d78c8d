package router

import "net/http"

// SessionUserKey is the query parameter that carries the session's user
// identifier, nil when the request has no session.
const SessionUserKey = "uuid"

// SessionLookup resolves the user identifier of the session attached to a
// request. The router only checks presence; the store behind it is opaque.
type SessionLookup interface {
	UserID(r *http.Request) (string, bool)
}

// SessionFunc adapts a function to SessionLookup.
type SessionFunc func(r *http.Request) (string, bool)

func (f SessionFunc) UserID(r *http.Request) (string, bool) { return f(r) }
