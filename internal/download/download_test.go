package download

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"vidrelay/internal/delivery"
	"vidrelay/internal/media"
)

func TestSaveBuffered(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSaver(fs, nil)

	path, err := s.Save(context.Background(), "/downloads", "clip_720p.mp4", &delivery.Buffered{Body: []byte("payload")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join("/downloads", "clip_720p.mp4") {
		t.Errorf("path = %q", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}

	// Only the final file remains.
	entries, _ := afero.ReadDir(fs, "/downloads")
	if len(entries) != 1 {
		t.Errorf("expected 1 file in directory, got %d", len(entries))
	}
}

func TestSaveRedirect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "video bytes")
	}))
	defer upstream.Close()

	fs := afero.NewMemMapFs()
	path, err := NewSaver(fs, upstream.Client()).Save(context.Background(), "/downloads", "v.mp4", &delivery.Redirect{URL: upstream.URL})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := afero.ReadFile(fs, path)
	if string(data) != "video bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveStreamed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 100000))
	}))
	defer upstream.Close()

	engine := delivery.New(upstream.Client(), 1024)
	res, err := engine.Deliver(context.Background(), delivery.Request{
		Rendition: media.Rendition{Kind: media.Video, Quality: "360p", Format: "mp4", Hint: media.HintDirectURL, Locator: upstream.URL},
		Intent:    delivery.IntentStream,
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	fs := afero.NewMemMapFs()
	path, err := NewSaver(fs, nil).Save(context.Background(), "/downloads", "big.mp4", res)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := fs.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 100000 {
		t.Errorf("size = %d, want 100000", info.Size())
	}
}

func TestSaveRedirectFailureLeavesNothing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer upstream.Close()

	fs := afero.NewMemMapFs()
	_, err := NewSaver(fs, upstream.Client()).Save(context.Background(), "/downloads", "v.mp4", &delivery.Redirect{URL: upstream.URL})
	if err == nil {
		t.Fatal("expected error")
	}
	entries, _ := afero.ReadDir(fs, "/downloads")
	if len(entries) != 0 {
		t.Errorf("expected no leftover files, got %d", len(entries))
	}
}

func TestSavePathTraversal(t *testing.T) {
	fs := afero.NewMemMapFs()
	path, err := NewSaver(fs, nil).Save(context.Background(), "/downloads", "../../etc/passwd", &delivery.Buffered{Body: []byte("x")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join("/downloads", "passwd") {
		t.Errorf("path = %q, want file confined to /downloads", path)
	}
}
