package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/upperlimit/internal/api"
	"github.com/obsidianstack/upperlimit/internal/config"
	"github.com/obsidianstack/upperlimit/internal/engine"
	"github.com/obsidianstack/upperlimit/internal/logging"
	"github.com/obsidianstack/upperlimit/internal/metrics"
	"github.com/obsidianstack/upperlimit/internal/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve results over HTTP and recompute when the config changes",
		Long: `Serve computes every analysis, then serves the results as JSON under
/api/v1 and as Prometheus metrics under /metrics. The config file is
watched; on change, analyses whose definition changed are recomputed and
removed analyses disappear from both endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			opts.setupLogging(cfg)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServer(ctx, configPath, serveFlags{root: opts, port: port}, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides server.http_port)")

	return cmd
}

// serveFlags are the command-line settings that win over every config
// load, the first and each reload.
type serveFlags struct {
	root *rootOptions
	port int
}

func (f serveFlags) apply(cfg *config.Config) {
	if f.port != 0 {
		cfg.Server.HTTPPort = f.port
	}
}

// server ties the engine to the result store and the metrics registry.
type server struct {
	engine  *engine.Engine
	store   *store.Store
	metrics *metrics.Metrics
	flags   serveFlags

	// cfg holds the settings in effect; it is only touched by the
	// startup path and then the config watcher.
	cfg *config.Config
}

func newServer(cfg *config.Config, flags serveFlags) (*server, error) {
	flags.apply(cfg)
	m := metrics.New(cfg.Server.MetricsPrefix)
	eng, err := engine.New(cfg.Engine, engine.WithRecorder(m))
	if err != nil {
		return nil, err
	}
	return &server{engine: eng, store: store.New(), metrics: m, flags: flags, cfg: cfg}, nil
}

func serveLogger() *slog.Logger { return logging.WithComponent("serve") }

// restartRequired lists the settings that differ between running and
// updated but only take effect when the server restarts.
func restartRequired(running, updated *config.Config) []string {
	var out []string
	if running.Server.HTTPPort != updated.Server.HTTPPort {
		out = append(out, "server.http_port")
	}
	if running.Server.MetricsPrefix != updated.Server.MetricsPrefix {
		out = append(out, "server.metrics_prefix")
	}
	if running.Server.ReloadDelay != updated.Server.ReloadDelay {
		out = append(out, "server.reload_delay")
	}
	return out
}

// reload applies an updated config. Logging and engine limits change in
// place; the listener, metric names and watcher keep their startup values.
func (s *server) reload(ctx context.Context, updated *config.Config) error {
	s.flags.apply(updated)
	if updated.Logging != s.cfg.Logging {
		s.flags.root.setupLogging(updated)
		serveLogger().Info("serve: logging reconfigured",
			"level", updated.Logging.Level, "format", updated.Logging.Format)
	}
	if updated.Engine != s.cfg.Engine {
		s.engine.Reconfigure(updated.Engine)
		serveLogger().Info("serve: engine reconfigured",
			"workers", updated.Engine.Workers, "cache_size", updated.Engine.CacheSize)
	}
	for _, setting := range restartRequired(s.cfg, updated) {
		serveLogger().Warn("serve: setting changed, restart to apply", "setting", setting)
	}

	next := *updated
	next.Server = s.cfg.Server
	s.cfg = &next
	return s.recompute(ctx, updated)
}

// recompute evaluates cfg's analyses and publishes the results.
func (s *server) recompute(ctx context.Context, cfg *config.Config) error {
	results, err := s.engine.Run(ctx, cfg.Analyses)
	if err != nil {
		return err
	}
	removed := s.store.Replace(results)
	s.metrics.Publish(results)

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	serveLogger().Info("serve: results updated",
		"analyses", len(results),
		"failed", failed,
		"removed", removed,
	)
	return nil
}

// handler returns the combined REST API and metrics handler.
func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", api.New(s.store))
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func runServer(ctx context.Context, configPath string, flags serveFlags, cfg *config.Config) error {
	srv, err := newServer(cfg, flags)
	if err != nil {
		return err
	}
	if err := srv.recompute(ctx, cfg); err != nil {
		return err
	}

	go func() {
		err := config.Watch(ctx, configPath, cfg.Server.ReloadDelay, func(updated *config.Config) {
			if err := srv.reload(ctx, updated); err != nil {
				serveLogger().Error("serve: recompute failed", "err", err)
			}
		})
		if err != nil {
			serveLogger().Error("serve: config watcher stopped", "err", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           srv.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		serveLogger().Info("serve: HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: http: %w", err)
	case <-ctx.Done():
	}

	serveLogger().Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
