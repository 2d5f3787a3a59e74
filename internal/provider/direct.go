package provider

import (
	"context"
	"fmt"
	"strconv"

	"vidrelay/internal/media"
)

// Descriptor is one raw format reported by an extraction engine. Field names
// follow the yt-dlp info dict, which other engines are mapped onto.
type Descriptor struct {
	Acodec     string   `json:"acodec"`
	Vcodec     string   `json:"vcodec"`
	Ext        string   `json:"ext"`
	Filesize   float64  `json:"filesize"`
	URL        string   `json:"url"`
	Height     int      `json:"height"`
	Quality    *float64 `json:"quality"`
	FormatNote string   `json:"format_note"`
	Abr        float64  `json:"abr"`
}

// Info is the metadata an engine extracts for one source URL.
type Info struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Duration  float64      `json:"duration"`
	Formats   []Descriptor `json:"formats"`
}

// Engine is a general-purpose metadata/format extraction capability.
type Engine interface {
	Name() string
	Extract(ctx context.Context, sourceURL string) (*Info, error)
}

// Direct resolves catalogs by running an extraction engine locally.
type Direct struct {
	engine Engine
}

// NewDirect creates a Direct provider backed by engine.
func NewDirect(engine Engine) *Direct {
	return &Direct{engine: engine}
}

func (d *Direct) Name() string { return "direct" }

// Resolve extracts format descriptors and classifies them into renditions.
func (d *Direct) Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error) {
	info, err := d.engine.Extract(ctx, sourceURL)
	if err != nil {
		return nil, classify(d.Name(), fmt.Sprintf("%s extraction failed", d.engine.Name()), err)
	}
	if info == nil {
		return nil, Permanent(d.Name(), fmt.Sprintf("%s returned no metadata", d.engine.Name()), nil)
	}

	catalog := &media.Catalog{
		Title:           info.Title,
		ThumbnailURL:    info.Thumbnail,
		DurationSeconds: int(info.Duration),
		ContentID:       media.ContentID(info.ID),
		Provider:        d.Name(),
	}
	for _, f := range info.Formats {
		if r, ok := classifyDescriptor(f); ok {
			catalog.Renditions = append(catalog.Renditions, r)
		}
	}
	return catalog, nil
}

// classifyDescriptor maps a descriptor to a rendition. Muxed formats (audio
// and video codecs) are video; audio-only formats are audio; everything else
// (video-only, silent, storyboards) is dropped. A missing codec is not "none".
func classifyDescriptor(f Descriptor) (media.Rendition, bool) {
	hasAudio := f.Acodec != "none"
	hasVideo := f.Vcodec != "none"

	r := media.Rendition{
		SizeBytes: int64(f.Filesize),
		Format:    f.Ext,
	}
	if r.SizeBytes < 0 {
		r.SizeBytes = 0
	}
	if f.URL != "" {
		r.Hint = media.HintDirectURL
		r.Locator = f.URL
	}

	switch {
	case hasAudio && hasVideo:
		r.Kind = media.Video
		r.Quality = videoQualityLabel(f)
		if r.Format == "" {
			r.Format = "mp4"
		}
	case hasAudio:
		r.Kind = media.Audio
		r.Quality = audioQualityLabel(f)
		if r.Format == "" {
			r.Format = "mp3"
		}
	default:
		return media.Rendition{}, false
	}
	return r, true
}

// videoQualityLabel prefers the vertical resolution, then the engine's quality
// score, then its human-readable note.
func videoQualityLabel(f Descriptor) string {
	switch {
	case f.Height > 0:
		return strconv.Itoa(f.Height) + "p"
	case f.Quality != nil && *f.Quality != 0:
		return strconv.FormatFloat(*f.Quality, 'f', -1, 64)
	case f.FormatNote != "":
		return f.FormatNote
	default:
		return "unknown"
	}
}

func audioQualityLabel(f Descriptor) string {
	if f.Abr > 0 {
		return strconv.FormatFloat(f.Abr, 'f', -1, 64) + "kbps"
	}
	return "audio"
}
