package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/pkg/api"
	"github.com/marmos91/picseq/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serve a browsing session over HTTP",
	Long: `Open a browsing session at path and expose it through the REST API.

The API moves the cursor, reports the surrounding images and streams the
bytes of the current image. When watching is enabled the session reloads
as files are added, removed or modified.

Examples:
  # Serve the current directory on the configured port
  picseq serve

  # Serve a tree on port 9000 with debug logging
  PICSEQ_LOGGING_LEVEL=DEBUG picseq serve ~/Pictures -s traverse-tree-alphabetical --port 9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "API port (overrides api.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.API.Port = servePort
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid --port: %w", err)
		}
	}
	if !cfg.API.IsEnabled() {
		return errors.New("the API is disabled (api.enabled: false)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", config.Source(GetConfigFile()))

	metricsResult := config.InitializeMetrics(cfg)

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	s, err := openSession(ctx, cfg, arg)
	if err != nil {
		return err
	}
	defer s.Close()

	apiServer := api.NewServer(cfg.API, api.Dependencies{
		Navigator: s.nav,
		Cache:     s.cache,
		FS:        s.fs,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Start(gctx)
	})

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		g.Go(func() error {
			return serveMetrics(gctx, metricsResult.Server, cfg)
		})
	}

	if cfg.Watch.Enabled {
		if err := startWatcher(gctx, g, s); err != nil {
			logger.Warn("Filesystem watching disabled", logger.Err(err))
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")
	err = g.Wait()
	if ctx.Err() != nil {
		logger.Info("Shutdown signal received, stopping")
	}
	if err != nil {
		logger.Error("Server error", logger.Err(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// serveMetrics runs the metrics server until ctx is done.
func serveMetrics(ctx context.Context, srv *http.Server, cfg *config.Config) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// startWatcher watches the directory being browsed and forwards changes to
// the navigator. Tree strategies watch the configured root when one is set.
func startWatcher(ctx context.Context, g *errgroup.Group, s *session) error {
	strat := s.nav.Strategy()
	w, err := config.CreateWatcher(s.nav, strat, s.cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.start)
	if strat.Tree() && s.cfg.Navigation.Root != "" {
		dir = s.cfg.Navigation.Root
	}
	if err := w.Watch(dir); err != nil {
		_ = w.Close()
		return err
	}
	logger.Info("Watching for changes", logger.Dir(dir), logger.Count(len(w.WatchList())))

	g.Go(func() error {
		defer func() { _ = w.Close() }()
		return w.Run(ctx)
	})
	return nil
}
