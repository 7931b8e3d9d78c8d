package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mickamy/kanboard/internal/schema"
	"github.com/mickamy/kanboard/router"
	"github.com/mickamy/kanboard/session"
)

const purgeInterval = time.Hour

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the kanban bindings over HTTP",
		Long: `Serve every binding as JSON, plus Prometheus metrics on the
configured metrics path. Pending migrations are applied first unless
database.migrate is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, cmd)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	e, err := loadEnv(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg := e.cfg

	if cfg.Database.Migrate {
		if err := schema.Up(e.dialect, cfg.Database.DSN, e.logger); err != nil {
			return err
		}
	}

	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	store, closeStore, err := e.store(db)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	if sqlStore, ok := store.(*session.SQL); ok {
		go purgeSessions(ctx, sqlStore, e)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cookie := session.Cookie{
		Name:   cfg.Session.Cookie,
		Store:  store,
		TTL:    cfg.Session.TTL,
		Logger: e.logger,
	}
	r, err := e.newRouter(db, cookie,
		router.WithSessions(cookie),
		router.WithMetrics(router.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	handler := mux.NewRouter()
	handler.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.PathPrefix("/").Handler(r)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.WithField("addr", cfg.Server.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	e.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func purgeSessions(ctx context.Context, s *session.SQL, e *env) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				e.logger.WithError(err).Warn("session purge failed")
				continue
			}
			e.logger.WithField("purged", n).Debug("sessions purged")
		}
	}
}
