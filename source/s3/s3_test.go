package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref     string
		bucket  string
		key     string
		wantErr bool
	}{
		{ref: "s3://memos/standup.ogg", bucket: "memos", key: "standup.ogg"},
		{ref: "s3://memos/team/2026/standup.ogg", bucket: "memos", key: "team/2026/standup.ogg"},
		{ref: "s3://memos", wantErr: true},
		{ref: "s3://memos/", wantErr: true},
		{ref: "s3:///standup.ogg", wantErr: true},
		{ref: "http://memos/standup.ogg", wantErr: true},
		{ref: "/local/standup.ogg", wantErr: true},
	}
	for _, tt := range tests {
		bucket, key, err := parseRef(tt.ref)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseRef(%q) expected error, got %q/%q", tt.ref, bucket, key)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseRef(%q) error: %v", tt.ref, err)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("parseRef(%q) = %q/%q, want %q/%q", tt.ref, bucket, key, tt.bucket, tt.key)
		}
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Region != DefaultRegion {
		t.Errorf("Region = %q, want %q", cfg.Region, DefaultRegion)
	}

	cfg = Config{Region: "eu-west-1"}
	cfg.ApplyDefaults()
	if cfg.Region != "eu-west-1" {
		t.Errorf("Region = %q, want eu-west-1", cfg.Region)
	}
}

func TestOpenDownloadsObject(t *testing.T) {
	const body = "fake audio bytes"
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		io.WriteString(w, body)
	}))
	defer srv.Close()

	o, err := New(context.Background(), Config{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	in, err := o.Open(context.Background(), "s3://memos/team/standup.ogg")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer in.Close()

	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
	if gotPath != "/memos/team/standup.ogg" {
		t.Errorf("request path = %q, want /memos/team/standup.ogg", gotPath)
	}
	if in.Name != "standup.ogg" {
		t.Errorf("Name = %q, want standup.ogg", in.Name)
	}
	if in.Path != "" {
		t.Errorf("Path = %q, want empty for streamed input", in.Path)
	}

	data, err := io.ReadAll(in.Reader)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != body {
		t.Errorf("body = %q, want %q", data, body)
	}
}

func TestOpenMissingObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "NoSuchKey", http.StatusNotFound)
	}))
	defer srv.Close()

	o, err := New(context.Background(), Config{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := o.Open(context.Background(), "s3://memos/absent.ogg"); err == nil {
		t.Fatal("expected error for missing object")
	}
}

func TestOpenRejectsBadRef(t *testing.T) {
	o := &Opener{}
	if _, err := o.Open(context.Background(), "https://memos/standup.ogg"); err == nil {
		t.Fatal("expected error for non-s3 reference")
	}
}

func TestScheme(t *testing.T) {
	if got := (&Opener{}).Scheme(); got != "s3" {
		t.Errorf("Scheme() = %q, want s3", got)
	}
}
