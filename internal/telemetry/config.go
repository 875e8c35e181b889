package telemetry

// DefaultServiceName is reported when a Service leaves Name empty.
const DefaultServiceName = "picseq"

// Service identifies this process to the trace and profile backends.
type Service struct {
	Name    string
	Version string
}

func (s Service) name() string {
	if s.Name == "" {
		return DefaultServiceName
	}
	return s.Name
}

// Config controls OTLP trace export.
type Config struct {
	Service

	Enabled bool

	// Endpoint is an OTLP gRPC host:port.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of root spans kept; clamped to [0, 1].
	SampleRate float64
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Service

	Enabled bool

	// Endpoint is the Pyroscope server URL.
	Endpoint string

	// ProfileTypes names the profiles to collect, see ParseProfileTypes.
	ProfileTypes []string
}

// DefaultConfig returns a disabled Config pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		Service:    Service{Name: DefaultServiceName, Version: "dev"},
		Endpoint:   "localhost:4317",
		Insecure:   true,
		SampleRate: 1.0,
	}
}
