package metrics

// Config holds configuration for the metrics provider
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Provider is prometheus or noop
	Provider string `mapstructure:"provider"`

	// Namespace prefixes every metric name
	Namespace string `mapstructure:"namespace"`

	// HTTPRequestBuckets are histogram buckets for request duration, in seconds
	HTTPRequestBuckets []float64 `mapstructure:"http_request_buckets"`

	// OperationBuckets are histogram buckets for engine operations and the
	// queries they issue, in seconds. Dependency previews over wide closures
	// run longer than single-table fetches.
	OperationBuckets []float64 `mapstructure:"operation_buckets"`
}

var (
	defaultHTTPBuckets      = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	defaultOperationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30}
)

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{Enabled: true}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in any missing values with defaults
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "prometheus"
	}
	if c.Namespace == "" {
		c.Namespace = "recordspec"
	}
	if len(c.HTTPRequestBuckets) == 0 {
		c.HTTPRequestBuckets = defaultHTTPBuckets
	}
	if len(c.OperationBuckets) == 0 {
		c.OperationBuckets = defaultOperationBuckets
	}
}

// NewProviderFromConfig builds the configured provider. A disabled config
// yields the no-op provider.
func NewProviderFromConfig(cfg Config) Provider {
	if !cfg.Enabled || cfg.Provider == "noop" {
		return &NoOpProvider{}
	}
	cfg.ApplyDefaults()
	return NewPrometheusProvider(&cfg)
}
