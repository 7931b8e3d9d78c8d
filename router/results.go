package router

import (
	"maps"

	"github.com/mickamy/kanboard/orm"
)

// Results carries what the router resolved for a request: the query
// parameters, the session user, and each named query's result.
type Results struct {
	params orm.Params
	user   string
	authed bool
	values map[string]any
}

// Param returns a request parameter (path, session, or form value).
// Path parameters declared as int are int64.
func (r *Results) Param(name string) (any, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Params returns a copy of every request parameter.
func (r *Results) Params() orm.Params {
	return maps.Clone(r.params)
}

// User returns the session user, if the request carried a session.
func (r *Results) User() (string, bool) { return r.user, r.authed }

// Get returns the result of the named query.
func (r *Results) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Rows returns the result of a query declared with Named. It is empty when
// the query is unknown or was declared with Typed.
func (r *Results) Rows(name string) orm.Rows {
	rows, _ := r.values[name].(orm.Rows)
	return rows
}

// Result returns the rows of a query declared with Typed[T].
func Result[T any](r *Results, name string) []T {
	rows, _ := r.values[name].([]T)
	return rows
}
