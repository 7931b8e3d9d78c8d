// Package config loads kanboard settings from an optional file, a .env
// file, and KANBOARD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database Database `mapstructure:"database" yaml:"database"`
	Server   Server   `mapstructure:"server" yaml:"server"`
	Session  Session  `mapstructure:"session" yaml:"session"`
	Log      Log      `mapstructure:"log" yaml:"log"`
}

type Database struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	// Name is the registry key models are registered under.
	Name    string `mapstructure:"name" yaml:"name"`
	Migrate bool   `mapstructure:"migrate" yaml:"migrate"`
}

type Server struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MetricsPath     string        `mapstructure:"metrics_path" yaml:"metrics_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type Session struct {
	Cookie    string        `mapstructure:"cookie" yaml:"cookie"`
	Backend   string        `mapstructure:"backend" yaml:"backend"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	Table     string        `mapstructure:"table" yaml:"table"`
}

type Log struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	Queries bool   `mapstructure:"queries" yaml:"queries"`
}

var (
	drivers  = []string{"sqlite3", "sqlite", "mysql", "pgx", "postgres", "postgresql"}
	backends = []string{"memory", "redis", "sql"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "kanboard.sqlite3")
	v.SetDefault("database.name", "default")
	v.SetDefault("database.migrate", true)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("session.cookie", "sessionid")
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.redis_addr", "127.0.0.1:6379")
	v.SetDefault("session.table", "kanboard_session")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.queries", false)
}

// Load reads the configuration. path may be empty; a .env file in the
// working directory is loaded when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KANBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(drivers, strings.ToLower(c.Database.Driver)) {
		return fmt.Errorf("unsupported database driver: %s. Supported drivers: %v", c.Database.Driver, drivers)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn cannot be empty")
	}
	if c.Database.Name == "" {
		return errors.New("database name cannot be empty")
	}
	if !slices.Contains(backends, c.Session.Backend) {
		return fmt.Errorf("unsupported session backend: %s. Supported backends: %v", c.Session.Backend, backends)
	}
	if c.Session.Cookie == "" {
		return errors.New("session cookie cannot be empty")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr cannot be empty")
	}
	return nil
}
