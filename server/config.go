package server

import (
	"fmt"

	"github.com/skillsenselab/voicenotes/server/middleware"
)

// Config holds HTTP server configuration. Timeouts default high enough to
// cover a synchronous transcription of a long recording.
type Config struct {
	Host               string                `yaml:"host" mapstructure:"host"`
	Port               int                   `yaml:"port" mapstructure:"port"`
	ReadTimeout        int                   `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout       int                   `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout        int                   `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize        string                `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "200MB"
	RateLimitPerMinute int                   `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	CORS               middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 300
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 900
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "200MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must be non-negative (got: %d)", c.RateLimitPerMinute)
	}
	return nil
}
