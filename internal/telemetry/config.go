package telemetry

// Config selects the trace backend. Endpoint is an OTLP/gRPC target such
// as "otel-collector:4317".
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool
	// SampleRate keeps the given fraction of traces; 1 keeps everything.
	SampleRate float64
}

// DefaultConfig is the disabled baseline used when the telemetry config
// section is absent.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "roster",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
