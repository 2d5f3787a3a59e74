// Package media defines shared types for the vidrelay application.
package media

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ContentID identifies a piece of content on its host platform (e.g. a YouTube video ID).
type ContentID string

// Kind represents whether a rendition carries video or audio only.
type Kind int

const (
	Video Kind = iota
	Audio
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses "video" or "audio" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return Video, nil
	case "audio":
		return Audio, nil
	default:
		return Video, fmt.Errorf("unknown kind %q (valid: video, audio)", s)
	}
}

// DeliveryHint tells the delivery engine how a rendition's bytes can be reached.
type DeliveryHint int

const (
	HintUnknown  DeliveryHint = iota
	HintDirectURL             // Locator is an upstream URL
	HintEmbedded              // Locator is an inline (base64) payload
)

func (h DeliveryHint) String() string {
	switch h {
	case HintDirectURL:
		return "direct_url"
	case HintEmbedded:
		return "embedded_content"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h DeliveryHint) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Rendition is one deliverable media variant.
type Rendition struct {
	Kind      Kind         `json:"kind"`
	Quality   string       `json:"quality"` // e.g. "720p", "128kbps"; compared by exact equality only
	Format    string       `json:"format"`  // container extension, e.g. "mp4", "m4a"
	SizeBytes int64        `json:"size"`    // 0 means unknown
	Hint      DeliveryHint `json:"delivery"`
	Locator   string       `json:"locator,omitempty"`
}

// HasDirectLink reports whether the rendition can be redirected to or streamed from.
func (r Rendition) HasDirectLink() bool {
	return r.Hint == HintDirectURL && r.Locator != ""
}

// key identifies a rendition for duplicate detection. Format is case-insensitive.
func (r Rendition) key() string {
	return r.Kind.String() + "\x00" + r.Quality + "\x00" + strings.ToLower(r.Format)
}

// Label is the "quality/format" display string.
func (r Rendition) Label() string {
	return r.Quality + "/" + r.Format
}

// Catalog is the result of one successful resolution.
type Catalog struct {
	Title           string      `json:"title"`
	ThumbnailURL    string      `json:"thumbnail"`
	DurationSeconds int         `json:"duration"`
	ContentID       ContentID   `json:"video_id"`
	Provider        string      `json:"provider"` // name of the provider that produced the catalog
	Renditions      []Rendition `json:"renditions"`
}

// Dedupe drops renditions whose (kind, quality, format) was already seen,
// keeping the first occurrence.
func (c *Catalog) Dedupe() {
	c.Renditions = lo.UniqBy(c.Renditions, Rendition.key)
}

// Videos returns the video renditions in catalog order.
func (c *Catalog) Videos() []Rendition {
	return c.ofKind(Video)
}

// Audios returns the audio renditions in catalog order.
func (c *Catalog) Audios() []Rendition {
	return c.ofKind(Audio)
}

func (c *Catalog) ofKind(kind Kind) []Rendition {
	return lo.Filter(c.Renditions, func(r Rendition, _ int) bool {
		return r.Kind == kind
	})
}
