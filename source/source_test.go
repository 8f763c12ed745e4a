package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeOpener struct {
	scheme string
	opened []string
}

func (f *fakeOpener) Scheme() string { return f.scheme }

func (f *fakeOpener) Open(ctx context.Context, ref string) (*Input, error) {
	f.opened = append(f.opened, ref)
	return &Input{
		Reader: io.NopCloser(strings.NewReader("remote bytes")),
		Name:   "remote.ogg",
	}, nil
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("riff"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLocalOpen(t *testing.T) {
	path := writeTempFile(t, "memo.wav")

	in, err := Local{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer in.Close()

	if in.Path != path {
		t.Errorf("Path = %q, want %q", in.Path, path)
	}
	if in.Name != "memo.wav" {
		t.Errorf("Name = %q, want memo.wav", in.Name)
	}
	if in.Reader != nil {
		t.Error("local input should not carry a reader")
	}
}

func TestLocalOpenMissing(t *testing.T) {
	if _, err := (Local{}).Open(context.Background(), filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLocalOpenDirectory(t *testing.T) {
	if _, err := (Local{}).Open(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestResolverDispatchesByScheme(t *testing.T) {
	remote := &fakeOpener{scheme: "s3"}
	r := NewResolver(Local{}, remote)

	path := writeTempFile(t, "memo.wav")
	in, err := r.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open(local) error: %v", err)
	}
	if in.Path != path {
		t.Errorf("local resolution returned %+v", in)
	}

	in, err = r.Open(context.Background(), "s3://bucket/memos/remote.ogg")
	if err != nil {
		t.Fatalf("Open(s3) error: %v", err)
	}
	defer in.Close()
	if len(remote.opened) != 1 || remote.opened[0] != "s3://bucket/memos/remote.ogg" {
		t.Errorf("remote opener saw %v", remote.opened)
	}
}

func TestResolverUnknownScheme(t *testing.T) {
	r := NewResolver(Local{})
	if _, err := r.Open(context.Background(), "gs://bucket/key"); err == nil {
		t.Error("expected error for unregistered scheme")
	}

	bare := NewResolver()
	if _, err := bare.Open(context.Background(), "/some/path.wav"); err == nil {
		t.Error("expected error without a plain-path opener")
	}
}

func TestRefScheme(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"/absolute/path.wav", ""},
		{"relative/path.ogg", ""},
		{"s3://bucket/key.wav", "s3"},
		{"S3://bucket/key.wav", "s3"},
		{`C:\Users\memo.wav`, ""},
		{"gs://bucket/key", "gs"},
	}
	for _, tt := range tests {
		if got := refScheme(tt.ref); got != tt.want {
			t.Errorf("refScheme(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestInputCloseWithoutReader(t *testing.T) {
	in := &Input{Path: "/tmp/x.wav"}
	if err := in.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
