// Package source resolves recording references into inputs the
// pipeline can stage: plain filesystem paths pass through, remote
// references stream their bytes down.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Input is an opened recording. Exactly one of Path and Reader is set:
// Path for recordings already on the local filesystem, Reader for
// recordings streamed from remote storage. Name carries the original
// filename so staging keeps a recognizable extension.
type Input struct {
	Path   string
	Reader io.ReadCloser
	Name   string
}

// Close releases the underlying stream, if any.
func (in *Input) Close() error {
	if in.Reader == nil {
		return nil
	}
	return in.Reader.Close()
}

// Opener fetches recordings for one URL scheme.
type Opener interface {
	// Scheme returns the URL scheme served; empty means plain paths.
	Scheme() string
	Open(ctx context.Context, ref string) (*Input, error)
}

// Resolver dispatches references to openers by scheme.
type Resolver struct {
	openers map[string]Opener
}

// NewResolver builds a resolver over the given openers.
func NewResolver(openers ...Opener) *Resolver {
	r := &Resolver{openers: make(map[string]Opener, len(openers))}
	for _, o := range openers {
		r.openers[o.Scheme()] = o
	}
	return r
}

// Open resolves one reference. The caller owns the returned input and
// must Close it.
func (r *Resolver) Open(ctx context.Context, ref string) (*Input, error) {
	scheme := refScheme(ref)
	o, ok := r.openers[scheme]
	if !ok {
		if scheme == "" {
			return nil, fmt.Errorf("source: no opener for plain paths")
		}
		return nil, fmt.Errorf("source: no opener for scheme %q", scheme)
	}
	return o.Open(ctx, ref)
}

// refScheme extracts a lowercase scheme from a reference. Plain and
// relative paths yield the empty scheme; single-letter schemes are
// treated as Windows drive letters, not schemes.
func refScheme(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
