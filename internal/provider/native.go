package provider

import (
	"context"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
)

// Native is an in-process Engine built on github.com/kkdai/youtube/v2.
// It needs no external executable but only understands YouTube URLs.
type Native struct {
	client *youtube.Client
}

// NewNative creates a native engine using httpClient for all upstream calls.
func NewNative(httpClient *http.Client) *Native {
	return &Native{client: &youtube.Client{HTTPClient: httpClient}}
}

func (n *Native) Name() string { return "native" }

// Extract fetches the video metadata and maps each format onto a Descriptor.
func (n *Native) Extract(ctx context.Context, sourceURL string) (*Info, error) {
	video, err := n.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetching video: %w", err)
	}

	info := &Info{
		ID:       video.ID,
		Title:    video.Title,
		Duration: video.Duration.Seconds(),
	}
	if len(video.Thumbnails) > 0 {
		info.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	for i := range video.Formats {
		f := &video.Formats[i]
		d := describeFormat(f)
		if d.Acodec == "none" {
			// Video-only formats are dropped downstream; skip the URL lookup.
			info.Formats = append(info.Formats, d)
			continue
		}
		if d.URL == "" {
			streamURL, err := n.client.GetStreamURLContext(ctx, video, f)
			if err != nil {
				logrus.WithFields(logrus.Fields{"engine": n.Name(), "itag": f.ItagNo}).
					Debugf("no stream URL: %v", err)
			}
			d.URL = streamURL
		}
		info.Formats = append(info.Formats, d)
	}

	return info, nil
}

// describeFormat converts a youtube.Format using its MIME type, e.g.
// `video/mp4; codecs="avc1.64001F, mp4a.40.2"`.
func describeFormat(f *youtube.Format) Descriptor {
	d := Descriptor{
		URL:        f.URL,
		Height:     f.Height,
		Filesize:   float64(f.ContentLength),
		FormatNote: f.QualityLabel,
		Acodec:     "none",
		Vcodec:     "none",
	}

	mediaType, params, err := mime.ParseMediaType(f.MimeType)
	if err != nil {
		return d
	}
	var codecs []string
	for _, c := range strings.Split(params["codecs"], ",") {
		if c = strings.TrimSpace(c); c != "" {
			codecs = append(codecs, c)
		}
	}

	major, sub, _ := strings.Cut(mediaType, "/")
	switch major {
	case "video":
		d.Ext = sub
		if len(codecs) > 0 {
			d.Vcodec = codecs[0]
		}
		if len(codecs) > 1 {
			d.Acodec = codecs[1]
		}
	case "audio":
		d.Ext = sub
		if sub == "mp4" {
			d.Ext = "m4a"
		}
		if len(codecs) > 0 {
			d.Acodec = codecs[0]
		} else {
			d.Acodec = sub
		}
	}

	bitrate := f.AverageBitrate
	if bitrate == 0 {
		bitrate = f.Bitrate
	}
	if d.Acodec != "none" && d.Vcodec == "none" && bitrate > 0 {
		d.Abr = math.Round(float64(bitrate) / 1000)
	}

	return d
}
