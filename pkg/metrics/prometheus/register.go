// Package prometheus provides the Prometheus implementations of the
// component metrics interfaces. Every constructor returns nil when metrics
// are disabled; components treat a nil Metrics as a no-op.
package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// register adds c to reg, returning the collector already registered under
// the same descriptors when there is one. Components are rebuilt whenever
// the navigation strategy changes, so constructors run more than once.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
