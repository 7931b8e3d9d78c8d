package orm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/mattn/go-sqlite3"
)

// Dialect abstracts SQL differences between database engines.
type Dialect interface {
	// Driver returns the database/sql driver name.
	Driver() string

	// Placeholder returns the bind parameter placeholder for the given
	// 1-based index. SQLite and MySQL return "?" regardless of index;
	// PostgreSQL returns "$1", "$2", etc.
	Placeholder(index int) string

	// ConstraintViolation reports whether err is an integrity constraint
	// violation (unique, foreign key, not null, check) raised by the driver.
	ConstraintViolation(err error) bool
}

// SQLite is the Dialect for SQLite (github.com/mattn/go-sqlite3).
var SQLite Dialect = sqliteDialect{}

// MySQL is the Dialect for MySQL / MariaDB.
var MySQL Dialect = mysqlDialect{}

// PostgreSQL is the Dialect for PostgreSQL through pgx.
var PostgreSQL Dialect = postgresDialect{}

// DialectFor returns the Dialect registered under a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return PostgreSQL, nil
	default:
		return nil, fmt.Errorf("orm: unknown driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Driver() string           { return "sqlite3" }
func (sqliteDialect) Placeholder(_ int) string { return "?" }

func (sqliteDialect) ConstraintViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

type mysqlDialect struct{}

func (mysqlDialect) Driver() string           { return "mysql" }
func (mysqlDialect) Placeholder(_ int) string { return "?" }

func (mysqlDialect) ConstraintViolation(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case 1048, 1062, 1451, 1452, 3819: // not null, duplicate, FK parent, FK child, check
		return true
	}
	return false
}

type postgresDialect struct{}

func (postgresDialect) Driver() string               { return "pgx" }
func (postgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }

func (postgresDialect) ConstraintViolation(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && pgerrcode.IsIntegrityConstraintViolation(pe.Code)
}

// rebind converts ? to dialect-specific placeholders ($1, $2, …).
// Question marks inside string literals are left alone.
func rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	idx := 1
	for i := 0; i < len(query); {
		switch query[i] {
		case '\'':
			j := skipLiteral(query, i)
			b.WriteString(query[i:j])
			i = j
		case '-', '/':
			j := skipComment(query, i)
			if j == i {
				j++
			}
			b.WriteString(query[i:j])
			i = j
		case '?':
			b.WriteString(d.Placeholder(idx))
			idx++
			i++
		default:
			b.WriteByte(query[i])
			i++
		}
	}
	return b.String()
}
