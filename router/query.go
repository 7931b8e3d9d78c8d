package router

import (
	"context"
	"errors"

	"github.com/mickamy/kanboard/orm"
)

// Query is a named query attached to a binding: a builder, the name its
// result is passed under, and the message returned when it fails.
type Query struct {
	name    string
	message string
	builder *orm.Builder
	run     func(ctx context.Context, db Executor, stmt orm.Statement) (any, error)
}

// Named returns a Query whose result is passed to the handler as orm.Rows.
func Named(name, message string, b *orm.Builder) Query {
	return Query{
		name:    name,
		message: message,
		builder: b,
		run: func(ctx context.Context, db Executor, stmt orm.Statement) (any, error) {
			return db.Execute(ctx, stmt.SQL, stmt.Args...)
		},
	}
}

// Typed returns a Query whose rows are scanned into []T. Columns map to T's
// fields by `db` tag or snake_case field name, so the column order of the
// builder's SELECT should be documented on T.
func Typed[T any](name, message string, b *orm.Builder) Query {
	return Query{
		name:    name,
		message: message,
		builder: b,
		run: func(ctx context.Context, db Executor, stmt orm.Statement) (any, error) {
			dest := make([]T, 0)
			if err := db.Select(ctx, &dest, stmt.SQL, stmt.Args...); err != nil {
				return nil, err
			}
			return dest, nil
		},
	}
}

func (q Query) Name() string { return q.name }

func (q Query) Message() string { return q.message }

// Template returns the query text with placeholders left in place.
func (q Query) Template() (string, error) { return q.builder.Template() }

// Render returns the query text with params substituted. See orm.Substitute.
func (q Query) Render(params orm.Params) (string, error) { return q.builder.Render(params) }

// Build returns the query with params bound.
func (q Query) Build(params orm.Params) (orm.Statement, error) { return q.builder.Build(params) }

func (q Query) validate() error {
	if q.name == "" {
		return errors.New("query name cannot be empty")
	}
	if q.builder == nil {
		return errors.New("query " + q.name + " has no builder")
	}
	_, err := q.builder.Template()
	return err
}
