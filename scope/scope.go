package scope

import (
	"fmt"
	"strings"
)

// Applier is implemented by query builders to receive scope fragments.
// This interface lives in the scope package so that orm can import scope
// without creating circular dependencies.
type Applier interface {
	ApplyWhere(cond string)
	ApplyAnd(cond string)
	ApplyOr(cond string)
	ApplyOrderBy(columns string)
	ApplyLimit(n int)
	ApplyOffset(n int)
}

type scopeKind int

const (
	kindWhere scopeKind = iota
	kindAnd
	kindOr
	kindOrderBy
	kindLimit
	kindOffset
)

// Scope represents a single query condition fragment.
// Scopes are immutable and safe to reuse across queries.
type Scope struct {
	kind   scopeKind
	clause string
	n      int
}

// Apply dispatches this Scope to the given Applier.
func (s Scope) Apply(a Applier) {
	switch s.kind {
	case kindWhere:
		a.ApplyWhere(s.clause)
	case kindAnd:
		a.ApplyAnd(s.clause)
	case kindOr:
		a.ApplyOr(s.clause)
	case kindOrderBy:
		a.ApplyOrderBy(s.clause)
	case kindLimit:
		a.ApplyLimit(s.n)
	case kindOffset:
		a.ApplyOffset(s.n)
	}
}

// Where returns a Scope that adds a condition. Builders turn it into AND
// when the query already has a WHERE clause.
//
//	scope.Where("owner_id = PARAM(uuid)")
func Where(cond string) Scope {
	return Scope{kind: kindWhere, clause: cond}
}

// And returns a Scope that adds an AND condition.
func And(cond string) Scope {
	return Scope{kind: kindAnd, clause: cond}
}

// Or returns a Scope that adds an OR condition.
func Or(cond string) Scope {
	return Scope{kind: kindOr, clause: cond}
}

// OrderBy returns a Scope that adds an ORDER BY clause.
//
//	scope.OrderBy("creation_date DESC", "id")
func OrderBy(columns ...string) Scope {
	return Scope{kind: kindOrderBy, clause: strings.Join(columns, ", ")}
}

// Limit returns a Scope that sets the LIMIT.
func Limit(n int) Scope {
	return Scope{kind: kindLimit, n: n}
}

// Offset returns a Scope that sets the OFFSET.
func Offset(n int) Scope {
	return Scope{kind: kindOffset, n: n}
}

// In returns a Where scope matching column against the list bound to the
// named parameter. The builder expands the list into one placeholder per
// element when the query is built.
//
//	scope.In("id", "board_ids")  // → WHERE id IN (PARAM(board_ids))
func In(column, param string) Scope {
	return Where(fmt.Sprintf("%s IN (PARAM(%s))", column, param))
}

// Paginate returns LIMIT/OFFSET scopes for a 1-based page.
func Paginate(page, perPage int) Scopes {
	if page < 1 {
		page = 1
	}
	return Combine(Limit(perPage), Offset((page-1)*perPage))
}

// Scopes is a named slice of Scope, useful for conditionally building
// up a set of scopes.
//
//	var s scope.Scopes
//	if onlyExpired {
//	    s = s.Append(Expired)
//	}
//	s = s.Merge(scope.Paginate(page, perPage))
//	cards.Scopes(s...)
type Scopes []Scope

// Append adds scopes and returns a new Scopes. The receiver is not modified.
func (ss Scopes) Append(scopes ...Scope) Scopes {
	return append(append(Scopes(nil), ss...), scopes...)
}

// Merge concatenates two Scopes and returns a new Scopes.
// Neither receiver nor argument is modified.
func (ss Scopes) Merge(other Scopes) Scopes {
	return append(append(Scopes(nil), ss...), other...)
}

// Combine creates a Scopes from the given scopes.
//
//	scope.Combine(scope.Limit(10), scope.Offset(20))
func Combine(scopes ...Scope) Scopes {
	return Scopes(scopes)
}
