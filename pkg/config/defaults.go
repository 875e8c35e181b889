package config

import (
	"strings"
	"time"

	"github.com/marmos91/picseq/pkg/api"
	"github.com/marmos91/picseq/pkg/fileseq"
	"github.com/marmos91/picseq/pkg/imageload"
	"github.com/marmos91/picseq/pkg/navigator"
	"github.com/marmos91/picseq/pkg/prefetch"
	"github.com/marmos91/picseq/pkg/watch"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyNavigationDefaults(&cfg.Navigation)
	applyLoaderDefaults(&cfg.Loader)
	applyWatchDefaults(&cfg.Watch)
	applyAPIDefaults(&cfg.API)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyNavigationDefaults sets navigation defaults and normalizes the
// strategy name and extensions.
func applyNavigationDefaults(cfg *NavigationConfig) {
	cfg.Strategy = strings.ToLower(strings.TrimSpace(cfg.Strategy))
	if cfg.Strategy == "" {
		cfg.Strategy = string(fileseq.CurrentDirAlphabetical)
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), fileseq.DefaultExtensions...)
	}
	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	if cfg.TraverseWindow == 0 {
		cfg.TraverseWindow = fileseq.DefaultWindow
	}
	// Zero is a valid half-width (no neighbours), so only negative values
	// are replaced.
	if cfg.PrefetchHalfWidth < 0 {
		cfg.PrefetchHalfWidth = navigator.DefaultHalfWidth
	}
	if cfg.LRUEntries == 0 {
		cfg.LRUEntries = prefetch.DefaultLRUEntries
	}
	if cfg.Workers == 0 {
		cfg.Workers = prefetch.DefaultWorkers
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = navigator.DefaultLoadTimeout
	}
}

func applyLoaderDefaults(cfg *LoaderConfig) {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = imageload.DefaultMaxFileSize
	}
}

func applyWatchDefaults(cfg *WatchConfig) {
	if cfg.Debounce == 0 {
		cfg.Debounce = watch.DefaultDebounce
	}
}

// applyAPIDefaults sets API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	enabled := true
	cfg := &Config{
		Navigation: NavigationConfig{
			PrefetchHalfWidth: navigator.DefaultHalfWidth,
		},
		Loader: LoaderConfig{
			MaxFileSize: imageload.DefaultMaxFileSize,
		},
		API: api.APIConfig{
			Enabled: &enabled,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
