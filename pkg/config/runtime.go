package config

import (
	"fmt"
	"net/http"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/internal/telemetry"
	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/metrics"
	prommetrics "github.com/marmos91/picseq/pkg/metrics/prometheus"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/marmos91/picseq/pkg/watch"
	"github.com/spf13/afero"
	"golang.org/x/text/language"
)

// ImageCacheName labels the decoded image cache in logs and metrics.
const ImageCacheName = "images"

// MetricsResult contains the result of metrics initialization.
type MetricsResult struct {
	// Server is the metrics HTTP server, nil when metrics are disabled.
	Server *http.Server
}

// InitializeMetrics initializes the Prometheus registry when metrics are
// enabled. Metric collectors created afterwards register themselves with it.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics disabled")
		return MetricsResult{}
	}

	metrics.InitRegistry()
	return MetricsResult{
		Server: metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port)),
	}
}

// TelemetrySettings converts the telemetry section for internal/telemetry.
func (c *Config) TelemetrySettings(version string) telemetry.Config {
	return telemetry.Config{
		Service:    telemetry.Service{Version: version},
		Enabled:    c.Telemetry.Enabled,
		Endpoint:   c.Telemetry.Endpoint,
		Insecure:   c.Telemetry.Insecure,
		SampleRate: c.Telemetry.SampleRate,
	}
}

// ProfilingSettings converts the profiling section for internal/telemetry.
func (c *Config) ProfilingSettings(version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Service:      telemetry.Service{Version: version},
		Enabled:      c.Telemetry.Profiling.Enabled,
		Endpoint:     c.Telemetry.Profiling.Endpoint,
		ProfileTypes: c.Telemetry.Profiling.ProfileTypes,
	}
}

// LoggerSettings converts the logging section for internal/logger.
func (c *Config) LoggerSettings() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// ParseStrategy returns the configured navigation strategy.
func (c *Config) ParseStrategy() (fileseq.Strategy, error) {
	return fileseq.ParseStrategy(c.Navigation.Strategy)
}

// ScannerOptions builds the scanner options shared by every strategy. The
// comparator is left unset so each scanner derives it from its strategy.
func (c *Config) ScannerOptions() (fileseq.Options, error) {
	tag, err := language.Parse(c.Navigation.Locale)
	if err != nil {
		return fileseq.Options{}, fmt.Errorf("invalid locale %q: %w", c.Navigation.Locale, err)
	}

	filter := fileseq.NewFilter(c.Navigation.Extensions...)
	filter.IncludeHidden = c.Navigation.IncludeHidden

	return fileseq.Options{
		Locale: tag,
		Filter: filter,
		Window: c.Navigation.TraverseWindow,
		Root:   c.Navigation.Root,
	}, nil
}

// CreateLoader creates the image decoder used as the cache producer.
func CreateLoader(fs afero.Fs, cfg *Config) *imageload.Loader {
	return imageload.New(fs, imageload.Config{
		MaxFileSize: cfg.Loader.MaxFileSize,
		Metrics:     prommetrics.NewDecodeMetrics(),
	})
}

// CreateImageCache creates the prefetch cache of decoded images. The caller
// starts and stops it.
func CreateImageCache(loader *imageload.Loader, cfg *Config) *prefetch.GroupedCache[string, *imageload.Image] {
	return prefetch.New(loader.Load, prefetch.Config{
		Workers:    cfg.Navigation.Workers,
		LRUEntries: cfg.Navigation.LRUEntries,
	},
		prefetch.WithName(ImageCacheName),
		prefetch.WithMetrics(prommetrics.NewPrefetchMetrics(ImageCacheName)),
	)
}

// CreateNavigator creates a navigator over fs backed by cache.
func CreateNavigator(fs afero.Fs, cache navigator.ImageCache, cfg *Config) (*navigator.Navigator, error) {
	strategy, err := cfg.ParseStrategy()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.ScannerOptions()
	if err != nil {
		return nil, err
	}

	return navigator.New(fs, cache, navigator.Config{
		Strategy:       strategy,
		Scanner:        opts,
		HalfWidth:      cfg.Navigation.PrefetchHalfWidth,
		LoadTimeout:    cfg.Navigation.LoadTimeout,
		ScannerMetrics: prommetrics.NewScannerMetrics,
		Metrics:        prommetrics.NewNavigatorMetrics(),
	}), nil
}

// CreateWatcher creates a filesystem watcher feeding target. Tree strategies
// watch recursively.
func CreateWatcher(target watch.Target, strategy fileseq.Strategy, cfg *Config) (*watch.Watcher, error) {
	return watch.New(target, watch.Config{
		Debounce:  cfg.Watch.Debounce,
		Recursive: strategy.Tree(),
	})
}
