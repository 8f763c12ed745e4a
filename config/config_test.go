package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("environment = %q, want %q", cfg.Environment, "development")
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Name != "voicenotes" {
			t.Errorf("name = %q, want %q", cfg.Name, "voicenotes")
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := Config{Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("logging level = %q, want %q", cfg.Logging.Level, "info")
		}
	})

	t.Run("debug lowers log level", func(t *testing.T) {
		cfg := Config{Environment: "production", Debug: true}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "debug" {
			t.Errorf("logging level = %q, want %q", cfg.Logging.Level, "debug")
		}
	})

	t.Run("pinned log level survives debug", func(t *testing.T) {
		cfg := Config{Debug: true}
		cfg.Logging.Level = "warn"
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "warn" {
			t.Errorf("logging level = %q, want %q", cfg.Logging.Level, "warn")
		}
	})

	t.Run("recognizer priority defaults to whisper then openai", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()
		want := []string{"whisper", "openai"}
		if !reflect.DeepEqual(cfg.Transcription.Priority, want) {
			t.Errorf("priority = %v, want %v", cfg.Transcription.Priority, want)
		}
	})

	t.Run("explicit priority preserved", func(t *testing.T) {
		var cfg Config
		cfg.Transcription.Priority = []string{"openai"}
		cfg.ApplyDefaults()
		want := []string{"openai"}
		if !reflect.DeepEqual(cfg.Transcription.Priority, want) {
			t.Errorf("priority = %v, want %v", cfg.Transcription.Priority, want)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string // empty means valid
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"staging is valid", func(c *Config) { c.Environment = "staging" }, ""},
		{"production is valid", func(c *Config) { c.Environment = "production" }, ""},
		{"unknown environment", func(c *Config) { c.Environment = "qa" }, "environment"},
		{"unknown recognizer in priority", func(c *Config) { c.Transcription.Priority = []string{"dictation"} }, "priority"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"auth enabled without secret", func(c *Config) { c.Auth.Enabled = true }, "auth.secret"},
		{"bad sample rate", func(c *Config) { c.Observability.SampleRate = 1.5 }, "observability.sample_rate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tc.errMsg)
			}
		})
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
environment: staging
server:
  port: 9090
transcription:
  priority: [openai]
  whisper:
    url: http://whisper.internal:8387
    timeout: 90s
  openai:
    model: whisper-1
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var cfg Config
	if err := Load("voicenotesd", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("environment = %q, want %q", cfg.Environment, "staging")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if got, want := cfg.Transcription.Whisper.URL, "http://whisper.internal:8387"; got != want {
		t.Errorf("whisper url = %q, want %q", got, want)
	}
	if cfg.Transcription.Whisper.Timeout != 90*time.Second {
		t.Errorf("whisper timeout = %v, want 90s", cfg.Transcription.Whisper.Timeout)
	}
	if !reflect.DeepEqual(cfg.Transcription.Priority, []string{"openai"}) {
		t.Errorf("priority = %v, want [openai]", cfg.Transcription.Priority)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	// A missing file is not fatal; defaults and env vars still apply.
	var cfg Config
	if err := Load("voicenotesd", &cfg, WithConfigFile("/nonexistent/config.yml")); err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
server:
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("TRANSCRIPTION_WHISPER_URL", "http://override:8387")

	var cfg Config
	if err := Load("voicenotesd", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("server port = %d, want env override 9000", cfg.Server.Port)
	}
	if got, want := cfg.Transcription.Whisper.URL, "http://override:8387"; got != want {
		t.Errorf("whisper url = %q, want %q", got, want)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverFindsConfigFile(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]bool
		want  string
	}{
		{
			"cmd directory wins",
			map[string]bool{
				"./cmd/voicenotesd/config.yml": true,
				"./config/config.yml":          true,
			},
			"./cmd/voicenotesd/config.yml",
		},
		{
			"falls back to config directory",
			map[string]bool{"./config/config.yml": true},
			"./config/config.yml",
		},
		{
			"falls back to root",
			map[string]bool{"./config.yml": true},
			"./config.yml",
		},
		{
			"nothing found",
			map[string]bool{},
			"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &Resolver{FileSystem: &mockFS{files: tc.files}}
			files := resolver.ResolveFiles("voicenotesd", LoaderConfig{})
			if files.ConfigFile != tc.want {
				t.Errorf("config file = %q, want %q", files.ConfigFile, tc.want)
			}
		})
	}
}

func TestResolverFindsEnvFile(t *testing.T) {
	t.Run("service env file preferred over plain", func(t *testing.T) {
		fs := &mockFS{files: map[string]bool{
			"./.env.voicenotesd": true,
			"./.env":             true,
		}}
		resolver := &Resolver{FileSystem: fs}
		files := resolver.ResolveFiles("voicenotesd", LoaderConfig{})
		if files.EnvFile != "./.env.voicenotesd" {
			t.Errorf("env file = %q, want %q", files.EnvFile, "./.env.voicenotesd")
		}
	})

	t.Run("cmd directory searched", func(t *testing.T) {
		fs := &mockFS{files: map[string]bool{
			"./cmd/voicenotesd/.env": true,
		}}
		resolver := &Resolver{FileSystem: fs}
		files := resolver.ResolveFiles("voicenotesd", LoaderConfig{})
		if files.EnvFile != "./cmd/voicenotesd/.env" {
			t.Errorf("env file = %q, want %q", files.EnvFile, "./cmd/voicenotesd/.env")
		}
	})
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig

	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}

	WithConfigFile("/path/to/config.yml")(&lc)
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("config file = %q", lc.ConfigFile)
	}

	WithEnvFile("/path/to/.env")(&lc)
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("env file = %q", lc.EnvFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"PORT", []string{"port"}},
		{"SERVER_PORT", []string{"server_port", "server.port"}},
		{
			"TRANSCRIPTION_WHISPER_URL",
			[]string{
				"transcription_whisper_url",
				"transcription.whisper.url",
				"transcription.whisper_url",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got := envKeyVariants(tc.key)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("envKeyVariants(%q) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}
