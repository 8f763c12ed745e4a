package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file operations the loader performs, so tests
// can resolve paths without touching the real disk.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem against the host filesystem.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver locates the config and env files for a named binary.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles holds the file paths the loader will read.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths from opts when given, otherwise
// searches the standard locations relative to the working directory.
func (r *Resolver) ResolveFiles(name string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.findConfigFile(name)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.findEnvFile(name)
	}

	return resolved
}

// findConfigFile checks the binary's cmd directory walking up two levels,
// then the config/ directory, then the repository root.
func (r *Resolver) findConfigFile(name string) string {
	candidates := []string{
		fmt.Sprintf("./cmd/%s/config.yml", name),
		fmt.Sprintf("../cmd/%s/config.yml", name),
		fmt.Sprintf("../../cmd/%s/config.yml", name),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}

	for _, path := range candidates {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile prefers .env.<name> over plain .env, checking the binary's
// cmd directory, the config/ directory, and the root at each of ./, ../
// and ../../ so the loader works from the repo root and from inside cmd.
func (r *Resolver) findEnvFile(name string) string {
	fileNames := []string{".env." + name, ".env"}
	dirs := []string{"cmd/" + name, "config", ""}
	prefixes := []string{".", "..", "../.."}

	for _, fileName := range fileNames {
		for _, prefix := range prefixes {
			for _, dir := range dirs {
				path := prefix + "/" + fileName
				if dir != "" {
					path = prefix + "/" + dir + "/" + fileName
				}
				if r.FileSystem.Exists(path) {
					return path
				}
			}
		}
	}
	return ""
}

// LoaderConfig carries loader dependencies and optional explicit paths.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption customizes a Load call.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load populates cfg for the named binary. It reads the first config.yml
// found in the standard locations, overlays a .env file when present, and
// lets process environment variables override both. A missing config file
// is not an error; the zero config plus defaults is a valid starting
// point.
func Load(name string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(name, lc)

	return loadResolved(name, cfg, files, lc.FileSystem)
}

func loadResolved(name string, cfg interface{}, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()

	// YAML file first so environment variables can override it.
	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("[config] warning: failed to read %s: %v\n", files.ConfigFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnviron(v)

	// .env values land in the process environment, so bind again to pick
	// up anything new.
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			fmt.Printf("[config] warning: failed to load %s: %v\n", files.EnvFile, err)
		} else {
			bindEnviron(v)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal %s config: %w", name, err)
	}
	return nil
}

// bindEnviron sets every process environment variable into Viper under
// each of its nested-key variants, so SERVER_PORT=9000 reaches
// server.port without per-key BindEnv calls.
func bindEnviron(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, key := range envKeyVariants(pair[0]) {
			v.Set(key, pair[1])
		}
	}
}

// envKeyVariants maps an UPPER_SNAKE environment variable name onto the
// nested keys it could address. The variable itself does not say which
// underscores are nesting separators and which belong to a field name,
// so every split point is generated and the ones that match nothing in
// the target struct are ignored at unmarshal time.
//
//	TRANSCRIPTION_WHISPER_URL -> transcription_whisper_url,
//	                             transcription.whisper.url,
//	                             transcription.whisper_url
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{
		lower,
		strings.ReplaceAll(lower, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	return dedupe(variants)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
