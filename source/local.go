package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local opens plain filesystem paths without copying.
type Local struct{}

// Scheme returns the empty scheme: Local serves non-URL references.
func (Local) Scheme() string { return "" }

// Open verifies the path names a readable file and passes it through.
func (Local) Open(ctx context.Context, ref string) (*Input, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return nil, fmt.Errorf("source: stat %s: %w", ref, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source: %s is a directory", ref)
	}
	return &Input{Path: ref, Name: filepath.Base(ref)}, nil
}
