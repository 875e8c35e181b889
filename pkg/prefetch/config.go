package prefetch

import "time"

const (
	// DefaultWorkers is the number of concurrent producers.
	DefaultWorkers = 3

	// DefaultLRUEntries is how many recently requested keys are retained
	// outside of any group.
	DefaultLRUEntries = 10
)

// Config holds the cache sizing.
type Config struct {
	Workers    int
	LRUEntries int
}

// DefaultConfig returns the default sizing.
func DefaultConfig() Config {
	return Config{
		Workers:    DefaultWorkers,
		LRUEntries: DefaultLRUEntries,
	}
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.LRUEntries <= 0 {
		c.LRUEntries = DefaultLRUEntries
	}
	return c
}

// Eviction reasons reported to Metrics.
const (
	EvictGroup      = "group"
	EvictLRU        = "lru"
	EvictInvalidate = "invalidate"
)

// Metrics receives cache observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveRequest(hit bool)
	ObserveProduction(d time.Duration, err error)
	ObserveEviction(reason string)
	SetQueueDepth(n int)
	SetEntries(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(bool)                     {}
func (noopMetrics) ObserveProduction(time.Duration, error) {}
func (noopMetrics) ObserveEviction(string)                 {}
func (noopMetrics) SetQueueDepth(int)                      {}
func (noopMetrics) SetEntries(int)                         {}

// Option customizes a GroupedCache.
type Option func(*options)

type options struct {
	name    string
	metrics Metrics
}

// WithMetrics reports cache activity to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithName labels the cache in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}
