package images

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetch(t *testing.T) {
	payload := []byte("jpeg-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.jpg":
			_, _ = w.Write(payload)
		case "/empty.jpg":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(local, payload, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{name: "url", source: srv.URL + "/photo.jpg"},
		{name: "local file", source: local},
		{name: "not found", source: srv.URL + "/missing.jpg", wantErr: true},
		{name: "empty body", source: srv.URL + "/empty.jpg", wantErr: true},
		{name: "missing file", source: filepath.Join(t.TempDir(), "nope.jpg"), wantErr: true},
	}

	f := NewFetcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := f.Fetch(context.Background(), tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d bytes", len(data))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(data, payload) {
				t.Errorf("got %q, want %q", data, payload)
			}
		})
	}
}

func TestFetchTooLarge(t *testing.T) {
	if _, err := readLimited(bytes.NewReader(make([]byte, MaxSourceSize+1))); err == nil {
		t.Error("expected error for oversized image")
	}
}

func TestIsURL(t *testing.T) {
	for source, want := range map[string]bool{
		"https://example.com/a.jpg": true,
		"http://example.com/a.jpg":  true,
		"./a.jpg":                   false,
		"/tmp/https.jpg":            false,
	} {
		if got := IsURL(source); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", source, got, want)
		}
	}
}
