package identity

import (
	"testing"

	"vidrelay/internal/media"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   media.ContentID
		wantOK bool
	}{
		{"watch", "https://www.youtube.com/watch?v=abc123", "abc123", true},
		{"watch with extra params", "https://www.youtube.com/watch?v=abc123&t=42s", "abc123", true},
		{"watch with v later", "https://www.youtube.com/watch?feature=share&v=abc123", "abc123", true},
		{"short link", "https://youtu.be/abc123", "abc123", true},
		{"short link with query", "https://youtu.be/abc123?si=xyz", "abc123", true},
		{"embed", "https://www.youtube.com/embed/abc123", "abc123", true},
		{"v path", "https://www.youtube.com/v/abc123", "abc123", true},
		{"e path", "https://www.youtube.com/e/abc123", "abc123", true},
		{"shorts", "https://www.youtube.com/shorts/abc123", "abc123", true},
		{"shorts trailing slash", "https://youtube.com/shorts/abc123/", "abc123", true},
		{"live", "https://www.youtube.com/live/abc123?feature=share", "abc123", true},
		{"mobile host", "https://m.youtube.com/watch?v=abc123", "abc123", true},
		{"bare domain", "https://www.youtube.com/", "", false},
		{"channel page", "https://www.youtube.com/@somechannel", "", false},
		{"other site", "https://vimeo.com/123456", "", false},
		{"empty", "", "", false},
		{"garbage", "::not a url::", "", false},
		{"empty id", "https://youtu.be/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	got := CanonicalURL("abc123")
	if got != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("CanonicalURL() = %q", got)
	}
	id, ok := Extract(got)
	if !ok || id != "abc123" {
		t.Errorf("round trip = %q, %v", id, ok)
	}
}
