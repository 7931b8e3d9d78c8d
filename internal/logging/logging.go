// Package logging builds the process logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mickamy/kanboard/orm"
)

// New returns a logger writing to out at the given level ("debug", "info",
// ...) with a "text" or "json" formatter.
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	return l, nil
}

// QueryLogger writes executed queries at debug level. Pass it to
// orm.DB.Debug.
type QueryLogger struct {
	Logger logrus.FieldLogger
}

var _ orm.Logger = QueryLogger{}

func (q QueryLogger) Log(_ context.Context, query string, args ...any) {
	q.Logger.WithFields(logrus.Fields{
		"sql":  strings.TrimSpace(query),
		"args": args,
	}).Debug("query")
}
