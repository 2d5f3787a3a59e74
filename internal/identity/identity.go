// Package identity extracts canonical content IDs from video page URLs.
package identity

import (
	"regexp"

	"vidrelay/internal/media"
)

// rules are tried in order; the first one that matches wins.
// Each rule captures the ID up to the next '&', '?' or '/'.
var rules = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/e/|youtube\.com/watch\?.*v=)([^&?/]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&?/]+)`),
	regexp.MustCompile(`youtube\.com/live/([^&?/]+)`),
}

// Extract returns the content ID embedded in rawURL.
// It never panics; ok is false when no rule matches.
func Extract(rawURL string) (id media.ContentID, ok bool) {
	if rawURL == "" {
		return "", false
	}
	for _, re := range rules {
		m := re.FindStringSubmatch(rawURL)
		if len(m) > 1 && m[1] != "" {
			return media.ContentID(m[1]), true
		}
	}
	return "", false
}

// CanonicalURL returns the watch page URL for a content ID.
func CanonicalURL(id media.ContentID) string {
	return "https://www.youtube.com/watch?v=" + string(id)
}
