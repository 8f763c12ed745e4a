// Package scratch manages per-run working directories. Every pipeline
// run gets its own directory for the staged input and the canonical
// segment files, and Close tears the whole directory down regardless of
// how the run ended.
package scratch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/skillsenselab/voicenotes/logger"
)

// dirPrefix names workspace directories so stale ones are recognizable
// under the base directory.
const dirPrefix = "voicenotes-"

// extPattern accepts the file extensions worth preserving on staged
// inputs. Anything else is dropped rather than copied into a path.
var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Config configures workspace placement.
type Config struct {
	// BaseDir is where workspaces are created. Defaults to the system
	// temp directory.
	BaseDir string `yaml:"base_dir,omitempty" mapstructure:"base_dir"`
}

// ApplyDefaults fills in the default base directory.
func (c *Config) ApplyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = os.TempDir()
	}
}

// Workspace is one run's scratch directory.
type Workspace struct {
	dir    string
	log    *logger.Logger
	closed bool
}

// New creates a uniquely named workspace directory under the base.
func New(cfg Config, log *logger.Logger) (*Workspace, error) {
	cfg.ApplyDefaults()
	dir := filepath.Join(cfg.BaseDir, dirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("scratch: create workspace: %w", err)
	}
	return &Workspace{dir: dir, log: log.WithComponent("scratch")}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string { return w.dir }

// SaveUpload stages an input stream into the workspace, preserving a
// safe extension from the original name so decoders that look at
// extensions still work.
func (w *Workspace) SaveUpload(r io.Reader, name string) (string, error) {
	path := filepath.Join(w.dir, "input"+safeExt(name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("scratch: stage input: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("scratch: stage input: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("scratch: stage input: %w", err)
	}
	return path, nil
}

// SegmentPath returns the canonical segment file path for an index.
func (w *Workspace) SegmentPath(index int) string {
	return filepath.Join(w.dir, fmt.Sprintf("segment_%04d.wav", index))
}

// Close removes the workspace directory and everything in it. Cleanup
// failures are logged, never returned; a leftover temp directory must
// not fail a run that already produced its transcript.
func (w *Workspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := os.RemoveAll(w.dir); err != nil {
		w.log.Warn("workspace cleanup failed", map[string]interface{}{
			logger.FieldPath:  w.dir,
			logger.FieldError: err.Error(),
		})
	}
	return nil
}

// safeExt extracts a lowercase extension safe to append to a path.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if extPattern.MatchString(ext) {
		return ext
	}
	return ""
}
