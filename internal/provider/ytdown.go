package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"vidrelay/internal/httputil"
	"vidrelay/internal/media"
)

// YtdownOptions configures a Ytdown provider.
type YtdownOptions struct {
	Base         string // receives the proxy.php form post
	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration // whole resolution, polling included
}

// Ytdown resolves catalogs through a converter whose media items point at
// processing jobs. Each job is polled until it yields a file URL.
type Ytdown struct {
	opts   YtdownOptions
	client *http.Client
}

// NewYtdown creates a Ytdown provider.
func NewYtdown(opts YtdownOptions) *Ytdown {
	if opts.Timeout <= 0 {
		opts.Timeout = httputil.DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 1500 * time.Millisecond
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 15
	}
	return &Ytdown{
		opts:   opts,
		client: httputil.NewClient(opts.Timeout),
	}
}

func (y *Ytdown) Name() string { return "ytdown" }

type ytdownResponse struct {
	API *ytdownAPI `json:"api"`
}

type ytdownAPI struct {
	Title      string       `json:"title"`
	Preview    string       `json:"imagePreviewUrl"`
	MediaItems []ytdownItem `json:"mediaItems"`
}

type ytdownItem struct {
	Type      string          `json:"type"`
	Quality   string          `json:"mediaQuality"`
	Size      json.RawMessage `json:"mediaFileSize"`
	Duration  json.RawMessage `json:"mediaDuration"`
	Extension string          `json:"mediaExtension"`
	URL       string          `json:"mediaUrl"`
}

// ytdownJob is one poll of a processing job.
type ytdownJob struct {
	Percent json.RawMessage `json:"percent"`
	FileURL string          `json:"fileUrl"`
}

// Resolve fetches the media items and polls their processing jobs. Items
// whose job does not finish in time are kept without a link.
func (y *Ytdown) Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, y.opts.Timeout)
	defer cancel()

	api, err := y.metadata(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	catalog := &media.Catalog{
		Title:        api.Title,
		ThumbnailURL: api.Preview,
		Provider:     y.Name(),
	}
	if len(api.MediaItems) > 0 {
		catalog.DurationSeconds = parseDuration(api.MediaItems[0].Duration)
	}

	var items []ytdownItem
	for _, item := range api.MediaItems {
		r, ok := mapYtdownItem(item)
		if !ok {
			continue
		}
		items = append(items, item)
		catalog.Renditions = append(catalog.Renditions, r)
	}

	var wg conc.WaitGroup
	for i := range items {
		if items[i].URL == "" {
			continue
		}
		wg.Go(func() {
			fileURL, err := y.waitForFile(ctx, items[i].URL)
			if err != nil {
				logrus.WithFields(logrus.Fields{"provider": y.Name(), "quality": items[i].Quality}).
					Debugf("processing job unusable: %v", err)
				return
			}
			catalog.Renditions[i].Hint = media.HintDirectURL
			catalog.Renditions[i].Locator = fileURL
		})
	}
	wg.Wait()

	return catalog, nil
}

func (y *Ytdown) metadata(ctx context.Context, sourceURL string) (*ytdownAPI, error) {
	base := strings.TrimRight(y.opts.Base, "/")
	form := url.Values{"url": {sourceURL}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/proxy.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, Permanent(y.Name(), "building request", err)
	}
	httputil.SetBrowserHeaders(req, "*/*")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Origin", base)
	req.Header.Set("Referer", base+"/en2/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, classify(y.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Transient(y.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var parsed ytdownResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5*1024*1024)).Decode(&parsed); err != nil {
		return nil, Transient(y.Name(), "parsing response", err)
	}
	if parsed.API == nil {
		return nil, Permanent(y.Name(), "response has no media data", nil)
	}
	return parsed.API, nil
}

// mapYtdownItem keeps the converter's own quality labels ("FHD", "HD", "128K").
func mapYtdownItem(item ytdownItem) (media.Rendition, bool) {
	r := media.Rendition{
		Quality:   strings.TrimSpace(item.Quality),
		Format:    strings.ToLower(strings.TrimSpace(item.Extension)),
		SizeBytes: ytdownSize(item.Size),
	}
	switch item.Type {
	case "Video":
		r.Kind = media.Video
		if r.Format == "" {
			r.Format = "mp4"
		}
	case "Audio":
		r.Kind = media.Audio
		if r.Format == "" {
			r.Format = "mp3"
		}
	default:
		return media.Rendition{}, false
	}
	if r.Quality == "" {
		return media.Rendition{}, false
	}
	return r, true
}

func ytdownSize(raw json.RawMessage) int64 {
	if n := parseSize(raw); n > 0 {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseHumanSize(s)
	}
	return 0
}

var errJobStalled = errors.New("processing job reported no progress")

// waitForFile polls a processing job until it completes, reports no progress
// or MaxPolls is reached. Failed polls are retried like pending ones.
func (y *Ytdown) waitForFile(ctx context.Context, jobURL string) (string, error) {
	var lastErr error
	for i := 0; i < y.opts.MaxPolls; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(y.opts.PollInterval):
			}
		}

		job, err := y.poll(ctx, jobURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		switch state := job.state(); {
		case state == "Completed" && job.FileURL != "":
			return job.FileURL, nil
		case state == "":
			return "", errJobStalled
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("processing failed after %d polls: %w", y.opts.MaxPolls, lastErr)
	}
	return "", fmt.Errorf("processing not completed after %d polls", y.opts.MaxPolls)
}

func (y *Ytdown) poll(ctx context.Context, jobURL string) (*ytdownJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return nil, err
	}
	httputil.SetBrowserHeaders(req, "application/json,text/html;q=0.9,*/*;q=0.8")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var job ytdownJob
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024*1024)).Decode(&job); err != nil {
		return nil, fmt.Errorf("parsing job status: %w", err)
	}
	return &job, nil
}

// state is the job's percent field as text: "Completed", a progress value
// such as "45%" or 45, or "" when absent.
func (j *ytdownJob) state() string {
	var s string
	if err := json.Unmarshal(j.Percent, &s); err == nil {
		return s
	}
	if len(j.Percent) == 0 || string(j.Percent) == "null" {
		return ""
	}
	return string(j.Percent)
}
