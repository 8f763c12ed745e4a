package config

import (
	"fmt"

	"github.com/skillsenselab/voicenotes/audio/ffmpeg"
	"github.com/skillsenselab/voicenotes/auth"
	"github.com/skillsenselab/voicenotes/export/gdocs"
	"github.com/skillsenselab/voicenotes/export/notion"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/observability"
	"github.com/skillsenselab/voicenotes/pipeline"
	"github.com/skillsenselab/voicenotes/server"
	"github.com/skillsenselab/voicenotes/source/s3"
	"github.com/skillsenselab/voicenotes/transcription/openai"
	"github.com/skillsenselab/voicenotes/transcription/whisper"
	"github.com/skillsenselab/voicenotes/validation"
)

// Config is the full configuration tree for the voicenotes daemon. The
// CLI reads the same file but uses only the Pipeline, Transcription,
// Export, Source, and Secrets sections.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	Pipeline      pipeline.Config     `yaml:"pipeline" mapstructure:"pipeline"`
	FFmpeg        ffmpeg.Config       `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	Export        ExportConfig        `yaml:"export" mapstructure:"export"`
	Source        SourceConfig        `yaml:"source" mapstructure:"source"`
	Secrets       SecretsConfig       `yaml:"secrets" mapstructure:"secrets"`
}

// TranscriptionConfig selects and configures the speech recognizers.
type TranscriptionConfig struct {
	// Priority orders recognizer fallback; the first available provider
	// handles the run. Defaults to the local whisper sidecar first, then
	// the OpenAI API.
	Priority []string       `yaml:"priority" mapstructure:"priority" validate:"omitempty,dive,oneof=whisper openai"`
	Whisper  whisper.Config `yaml:"whisper" mapstructure:"whisper"`
	OpenAI   openai.Config  `yaml:"openai" mapstructure:"openai"`
}

// ExportConfig configures the destinations a transcript can be sent to.
// A target whose section is left zero is not registered.
type ExportConfig struct {
	Notion notion.Config `yaml:"notion" mapstructure:"notion"`
	GDocs  gdocs.Config  `yaml:"gdocs" mapstructure:"gdocs"`
}

// SourceConfig configures non-local recording sources.
type SourceConfig struct {
	S3 s3.Config `yaml:"s3" mapstructure:"s3"`
}

// SecretsConfig holds the vault passphrase that seals credential files
// such as the Google Docs OAuth token. Prefer setting it through the
// SECRETS_PASSPHRASE environment variable over the YAML file.
type SecretsConfig struct {
	Passphrase string `yaml:"passphrase" mapstructure:"passphrase"`
}

// ApplyDefaults fills in zero values across the whole tree.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "voicenotes"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	// Debug lowers the log level unless the operator pinned one.
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	if len(c.Transcription.Priority) == 0 {
		c.Transcription.Priority = []string{whisper.ProviderName, openai.ProviderName}
	}

	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.FFmpeg.ApplyDefaults()
	c.Source.S3.ApplyDefaults()
}

// Validate checks the whole tree. Struct tags cover the enum fields;
// sections with richer rules validate themselves.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
