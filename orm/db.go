package orm

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"

	"github.com/mickamy/kanboard/internal/naming"
)

// Logger is the interface for query logging.
type Logger interface {
	Log(ctx context.Context, query string, args ...any)
}

// DB is the query execution service. It resolves registry tokens against
// one database key of a Registry, binds arguments with the dialect's
// placeholders, and materialises results.
//
// DB is safe for concurrent use.
type DB struct {
	raw      *sqlx.DB
	d        Dialect
	reg      *Registry
	database string
	logger   Logger
}

// New wraps a *sql.DB. Registry tokens in queries are resolved under the
// database key of reg.
func New(db *sql.DB, d Dialect, reg *Registry, database string) *DB {
	raw := sqlx.NewDb(db, d.Driver())
	raw.Mapper = reflectx.NewMapperFunc("db", naming.CamelToSnake)
	return &DB{raw: raw, d: d, reg: reg, database: database}
}

// Open opens a connection pool for dsn using the dialect's driver.
func Open(d Dialect, dsn string, reg *Registry, database string) (*DB, error) {
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	return New(db, d, reg, database), nil
}

// Debug returns a new *DB that logs every query using the given Logger.
// The original DB is not modified.
func (db *DB) Debug(l Logger) *DB {
	db2 := *db
	db2.logger = l
	return &db2
}

// Database returns the registry key queries are resolved under.
func (db *DB) Database() string { return db.database }

// Registry returns the registry used for token resolution.
func (db *DB) Registry() *Registry { return db.reg }

// Dialect returns the dialect of the connection.
func (db *DB) Dialect() Dialect { return db.d }

// Raw returns the underlying *sql.DB.
func (db *DB) Raw() *sql.DB { return db.raw.DB }

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.raw.PingContext(ctx); err != nil {
		return db.wrap("", err)
	}
	return nil
}

// Close closes the underlying pool.
func (db *DB) Close() error { return db.raw.Close() } //nolint:wrapcheck // thin wrapper

// Execute runs query with args on a single pooled connection and returns
// every row. Registry tokens are resolved first; a token that does not
// resolve fails with *ModelNotFoundError before anything is sent. Driver
// failures are returned as *DatabaseError.
//
// []byte column values are returned as strings.
func (db *DB) Execute(ctx context.Context, query string, args ...any) (Rows, error) {
	query, err := db.prepare(ctx, query, args)
	if err != nil {
		return Rows{}, err
	}

	conn, err := db.raw.Connx(ctx)
	if err != nil {
		return Rows{}, db.wrap(query, err)
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return Rows{}, db.wrap(query, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return Rows{}, db.wrap(query, err)
	}
	result := Rows{Columns: cols, Values: make([][]any, 0)}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return Rows{}, db.wrap(query, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		result.Values = append(result.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return Rows{}, db.wrap(query, err)
	}
	return result, nil
}

// Run executes a built Statement.
func (db *DB) Run(ctx context.Context, stmt Statement) (Rows, error) {
	return db.Execute(ctx, stmt.SQL, stmt.Args...)
}

// Select runs query and scans every row into dest, which must be a pointer
// to a slice of structs (or of scalars for single-column queries).
// Columns map to `db` tags, falling back to the snake_case field name.
func (db *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	query, err := db.prepare(ctx, query, args)
	if err != nil {
		return err
	}

	conn, err := db.raw.Connx(ctx)
	if err != nil {
		return db.wrap(query, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SelectContext(ctx, dest, query, args...); err != nil {
		return db.wrap(query, err)
	}
	return nil
}

func (db *DB) prepare(ctx context.Context, query string, args []any) (string, error) {
	expanded, err := db.reg.Expand(db.database, query)
	if err != nil {
		return "", err
	}
	expanded = rebind(db.d, expanded)
	if db.logger != nil {
		db.logger.Log(ctx, expanded, args...)
	}
	return expanded, nil
}

func (db *DB) wrap(query string, err error) error {
	return &DatabaseError{Query: query, Err: err, Constraint: db.d.ConstraintViolation(err)}
}
