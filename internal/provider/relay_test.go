package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidrelay/internal/media"
)

func newRelayServer(t *testing.T, status int, body string) (*httptest.Server, *relayRequest) {
	t.Helper()
	var got relayRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestRelayResolve(t *testing.T) {
	body := `{
		"status": 1,
		"data": {
			"title": "Test Video",
			"thumbnail": "https://img.example/t.jpg",
			"duration": "3:25",
			"resources": [
				{"type": "video", "quality": "720p", "format": "MP4", "size": 1048576,
				 "download_mode": "check_download", "download_url": "https://cdn.example/720.mp4"},
				{"type": "video", "quality": "360p", "format": "mp4", "size": "2048",
				 "resource_content": "aGVsbG8="},
				{"type": "audio", "quality": "128kbps", "format": "mp3", "resource_id": 4417,
				 "download_mode": "check_download", "download_url": "https://cdn.example/a.mp3"},
				{"type": "video", "quality": "1080p", "format": "mp4", "resource_id": "r-9",
				 "download_mode": "convert", "download_url": "https://relay.example/needs-convert"},
				{"type": "subtitle", "quality": "en", "format": "vtt"},
				{"type": "video", "format": "mp4"},
				"garbage",
				{"type": "audio", "quality": "48kbps", "format": "m4a"}
			]
		}
	}`
	srv, got := newRelayServer(t, http.StatusOK, body)

	r := NewRelay(RelayOptions{Endpoint: srv.URL, Origin: "https://relay.example"})
	catalog, err := r.Resolve(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got.URL != "/media/parse" || got.Data.Origin != "source" || got.Data.Link != "https://youtu.be/abc123" {
		t.Errorf("unexpected request envelope: %+v", *got)
	}

	if catalog.Title != "Test Video" {
		t.Errorf("Title = %q", catalog.Title)
	}
	if catalog.DurationSeconds != 205 {
		t.Errorf("DurationSeconds = %d, want 205", catalog.DurationSeconds)
	}
	if catalog.Provider != "relay" {
		t.Errorf("Provider = %q, want relay", catalog.Provider)
	}

	want := []media.Rendition{
		{Kind: media.Video, Quality: "720p", Format: "MP4", SizeBytes: 1048576, Hint: media.HintDirectURL, Locator: "https://cdn.example/720.mp4"},
		{Kind: media.Video, Quality: "360p", Format: "mp4", SizeBytes: 2048, Hint: media.HintEmbedded, Locator: "aGVsbG8="},
		{Kind: media.Audio, Quality: "128kbps", Format: "mp3", Hint: media.HintDirectURL, Locator: "https://cdn.example/a.mp3"},
		{Kind: media.Video, Quality: "1080p", Format: "mp4", Hint: media.HintUnknown},
		{Kind: media.Audio, Quality: "48kbps", Format: "m4a", Hint: media.HintUnknown},
	}
	if len(catalog.Renditions) != len(want) {
		t.Fatalf("got %d renditions, want %d: %+v", len(catalog.Renditions), len(want), catalog.Renditions)
	}
	for i, w := range want {
		if catalog.Renditions[i] != w {
			t.Errorf("rendition[%d] = %+v, want %+v", i, catalog.Renditions[i], w)
		}
	}
}

func TestRelayResolveErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error", http.StatusInternalServerError, `oops`, true},
		{"invalid json", http.StatusOK, `<html>`, true},
		{"refused", http.StatusOK, `{"status": 0, "msg": "unsupported"}`, false},
		{"missing data", http.StatusOK, `{"status": 1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newRelayServer(t, tt.status, tt.body)
			r := NewRelay(RelayOptions{Endpoint: srv.URL})

			_, err := r.Resolve(context.Background(), "https://youtu.be/abc123")
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not a *provider.Error", err)
			}
			if pe.Provider != "relay" {
				t.Errorf("Provider = %q, want relay", pe.Provider)
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.transient)
			}
		})
	}
}

func TestRelayResolveEmptyResources(t *testing.T) {
	srv, _ := newRelayServer(t, http.StatusOK, `{"status": 1, "data": {"title": "x", "resources": []}}`)
	r := NewRelay(RelayOptions{Endpoint: srv.URL})

	catalog, err := r.Resolve(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(catalog.Renditions) != 0 {
		t.Errorf("expected no renditions, got %d", len(catalog.Renditions))
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{`1024`, 1024},
		{`"2048"`, 2048},
		{`1.5e3`, 1500},
		{`"12 MB"`, 0},
		{`null`, 0},
		{`-5`, 0},
		{``, 0},
	}
	for _, tt := range tests {
		if got := parseSize(json.RawMessage(tt.input)); got != tt.want {
			t.Errorf("parseSize(%s) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{`212`, 212},
		{`"45"`, 45},
		{`"3:25"`, 205},
		{`"1:02:03"`, 3723},
		{`"a:b"`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		if got := parseDuration(json.RawMessage(tt.input)); got != tt.want {
			t.Errorf("parseDuration(%s) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
