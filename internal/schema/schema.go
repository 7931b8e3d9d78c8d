// Package schema creates the kanboard tables with embedded migrations.
// Table names are the physical names the model registry resolves to.
package schema

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/mickamy/kanboard/orm"
)

//go:embed migrations
var migrations embed.FS

// Migrator applies the embedded migrations of one dialect.
type Migrator struct {
	m *migrate.Migrate
}

// New opens a dedicated connection for dsn. Close releases it.
func New(d orm.Dialect, dsn string, logger logrus.FieldLogger) (*Migrator, error) {
	if d.Driver() == orm.MySQL.Driver() {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("schema: parse dsn: %w", err)
		}
		cfg.MultiStatements = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("schema: open: %w", err)
	}
	driver, err := databaseDriver(d, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	src, err := iofs.New(migrations, "migrations/"+d.Driver())
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("schema: load migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, d.Driver(), driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	if logger != nil {
		m.Log = migrateLogger{logger}
	}
	return &Migrator{m: m}, nil
}

func databaseDriver(d orm.Dialect, db *sql.DB) (database.Driver, error) {
	var (
		driver database.Driver
		err    error
	)
	switch d.Driver() {
	case orm.SQLite.Driver():
		driver, err = migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	case orm.MySQL.Driver():
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case orm.PostgreSQL.Driver():
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		return nil, fmt.Errorf("schema: no migrations for driver %q", d.Driver())
	}
	if err != nil {
		return nil, fmt.Errorf("schema: %s driver: %w", d.Driver(), err)
	}
	return driver, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("schema: up: %w", err)
	}
	return nil
}

// Down reverts every migration.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("schema: down: %w", err)
	}
	return nil
}

// Version returns the applied version. ok is false on an empty database.
func (m *Migrator) Version() (version uint, dirty, ok bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("schema: version: %w", err)
	}
	return version, dirty, true, nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Up is a shorthand for New, Up, and Close.
func Up(d orm.Dialect, dsn string, logger logrus.FieldLogger) error {
	m, err := New(d, dsn, logger)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

type migrateLogger struct {
	l logrus.FieldLogger
}

func (m migrateLogger) Printf(format string, v ...any) {
	m.l.WithField("component", "migrate").Infof(format, v...)
}

func (m migrateLogger) Verbose() bool { return false }
