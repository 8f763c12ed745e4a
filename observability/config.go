package observability

import (
	"context"
	"fmt"
	"time"
)

// Config holds OTLP export settings shared by the tracer and meter.
type Config struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint        string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure        bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate      float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	IntervalSeconds int     `yaml:"interval_seconds" mapstructure:"interval_seconds"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 15
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1 (got: %g)", c.SampleRate)
	}
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("observability.interval_seconds must be non-negative (got: %d)", c.IntervalSeconds)
	}
	return nil
}

// Identity describes the service reporting telemetry.
type Identity struct {
	Name        string
	Version     string
	Environment string
}

// Setup initializes tracing and metrics export according to cfg and installs
// the providers globally. The returned shutdown function flushes both
// providers. When cfg.Enabled is false the global no-op providers stay in
// place and the returned shutdown does nothing.
func Setup(ctx context.Context, cfg Config, id Identity) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    id.Name,
		ServiceVersion: id.Version,
		Environment:    id.Environment,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		SampleRate:     cfg.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	mp, err := InitMeter(ctx, &MeterConfig{
		ServiceName:    id.Name,
		ServiceVersion: id.Version,
		Environment:    id.Environment,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		Interval:       time.Duration(cfg.IntervalSeconds) * time.Second,
	})
	if err != nil {
		tp.Shutdown(ctx) //nolint:errcheck
		return nil, err
	}

	return func(ctx context.Context) error {
		terr := tp.Shutdown(ctx)
		merr := mp.Shutdown(ctx)
		if terr != nil {
			return terr
		}
		return merr
	}, nil
}
