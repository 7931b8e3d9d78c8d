package orm

import "context"

// Rebind exposes rebind for tests.
func Rebind(d Dialect, query string) string { return rebind(d, query) }

// IsToken exposes isToken for tests.
func IsToken(s string) bool { return isToken(s) }

// TestLogger is a Logger that records logged queries.
// Exported for use in orm_test package.
type TestLogger struct {
	Queries []TestQuery
}

// TestQuery holds a captured query string and its args.
type TestQuery struct {
	SQL  string
	Args []any
}

func (l *TestLogger) Log(_ context.Context, query string, args ...any) {
	l.Queries = append(l.Queries, TestQuery{query, args})
}

var _ Logger = (*TestLogger)(nil)

// LastQuery returns the most recently captured query, or panics if empty.
func (l *TestLogger) LastQuery() TestQuery {
	return l.Queries[len(l.Queries)-1]
}
