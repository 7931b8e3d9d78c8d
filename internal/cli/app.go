package cli

import (
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mickamy/kanboard/internal/auth"
	"github.com/mickamy/kanboard/internal/config"
	"github.com/mickamy/kanboard/internal/kanban"
	"github.com/mickamy/kanboard/internal/logging"
	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/router"
	"github.com/mickamy/kanboard/session"
)

// env is what every command builds from the configuration.
type env struct {
	cfg     *config.Config
	logger  *logrus.Logger
	dialect orm.Dialect
}

func loadEnv(opts *RootOptions, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	d, err := orm.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, dialect: d}, nil
}

// registry returns a registry holding every kanban model.
func (e *env) registry() *orm.Registry {
	reg := orm.NewRegistry()
	kanban.Register(reg, e.cfg.Database.Name)
	return reg
}

func (e *env) openDB() (*orm.DB, error) {
	db, err := orm.Open(e.dialect, e.cfg.Database.DSN, e.registry(), e.cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if e.cfg.Log.Queries {
		db = db.Debug(logging.QueryLogger{Logger: e.logger})
	}
	return db, nil
}

// store returns the configured session store and a function releasing it.
func (e *env) store(db *orm.DB) (session.Store, func() error, error) {
	noop := func() error { return nil }
	ttl := e.cfg.Session.TTL

	switch e.cfg.Session.Backend {
	case "memory":
		return session.NewMemory(ttl), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: e.cfg.Session.RedisAddr})
		return session.NewRedis(client, ttl), client.Close, nil
	case "sql":
		return session.NewSQL(db, e.cfg.Session.Table, ttl), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported session backend: %s", e.cfg.Session.Backend)
	}
}

// newRouter returns a router with every kanban and account binding. db
// and sessions may be nil when the router is only inspected.
func (e *env) newRouter(db router.Executor, sessions auth.Sessions, opts ...router.Option) (*router.Router, error) {
	opts = append([]router.Option{router.WithLogger(e.logger)}, opts...)
	r := router.New(db, opts...)
	if err := kanban.NewService(db, e.logger).Bind(r); err != nil {
		return nil, err
	}
	if err := auth.NewService(db, sessions, e.logger).Bind(r); err != nil {
		return nil, err
	}
	return r, nil
}
