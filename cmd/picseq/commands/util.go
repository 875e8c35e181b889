package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/internal/telemetry"
	"github.com/marmos91/picseq/pkg/config"
	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/spf13/afero"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(cfg.LoggerSettings()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if strategy != "" {
		cfg.Navigation.Strategy = strategy
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid --strategy: %w", err)
		}
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initObservability starts tracing and profiling when enabled. The returned
// function flushes and stops both.
func initObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetrySettings(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(cfg.ProfilingSettings(Version))
	if err != nil {
		_ = telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}, nil
}

// session bundles the components of one browsing session.
type session struct {
	cfg    *config.Config
	fs     afero.Fs
	loader *imageload.Loader
	cache  *prefetch.GroupedCache[string, *imageload.Image]
	nav    *navigator.Navigator
	start  string
}

// openSession builds the loader, cache and navigator over the OS filesystem
// and opens the navigator at arg. The cache workers run until Close.
func openSession(ctx context.Context, cfg *config.Config, arg string) (*session, error) {
	s := &session{cfg: cfg, fs: afero.NewOsFs()}

	strat, err := cfg.ParseStrategy()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ScannerOptions()
	if err != nil {
		return nil, err
	}
	s.start, err = resolveStart(s.fs, arg, strat, opts)
	if err != nil {
		return nil, err
	}

	s.loader = config.CreateLoader(s.fs, cfg)
	s.cache = config.CreateImageCache(s.loader, cfg)
	s.nav, err = config.CreateNavigator(s.fs, s.cache, cfg)
	if err != nil {
		return nil, err
	}

	s.cache.Start(ctx)
	if err := s.nav.Open(ctx, s.start); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open %s: %w", s.start, err)
	}

	logger.Info("Session opened",
		logger.Path(s.start),
		logger.Strategy(strat.String()),
		logger.SessionID(s.nav.SessionID()))
	return s, nil
}

// Close stops the navigator and the cache workers.
func (s *session) Close() {
	if s.nav != nil {
		_ = s.nav.Close()
	}
	if s.cache != nil {
		s.cache.Stop(s.cfg.ShutdownTimeout)
	}
}

// resolveStart turns the command line argument into the start path. With a
// current-directory strategy a directory start becomes its first image.
func resolveStart(fs afero.Fs, arg string, strat fileseq.Strategy, opts fileseq.Options) (string, error) {
	if arg == "" {
		arg = "."
	}
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}

	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s does not exist", path)
		}
		return "", err
	}
	if !info.IsDir() || strat.Tree() {
		return path, nil
	}

	images, err := fileseq.ListImages(fs, path, strat, opts)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no images in %s", path)
	}
	return images[0].Path, nil
}
