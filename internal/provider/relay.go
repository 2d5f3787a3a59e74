package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vidrelay/internal/httputil"
	"vidrelay/internal/media"
)

// RelayOptions configures a Relay provider.
type RelayOptions struct {
	Endpoint  string // e.g. "https://vidssave.com/api/proxy"
	Origin    string
	Referer   string
	UserAgent string
	Timeout   time.Duration
}

// Relay resolves catalogs through a third-party "media parse" relay API.
type Relay struct {
	opts   RelayOptions
	client *http.Client
}

// NewRelay creates a Relay provider.
func NewRelay(opts RelayOptions) *Relay {
	if opts.Timeout <= 0 {
		opts.Timeout = httputil.DefaultTimeout
	}
	return &Relay{
		opts:   opts,
		client: httputil.NewClient(opts.Timeout),
	}
}

func (r *Relay) Name() string { return "relay" }

// relayRequest is the request envelope the relay expects.
type relayRequest struct {
	URL   string           `json:"url"`
	Data  relayRequestData `json:"data"`
	Token string           `json:"token"`
}

type relayRequestData struct {
	Origin string `json:"origin"`
	Link   string `json:"link"`
}

// relayResponse is the response envelope. Resources are kept raw so that a
// single malformed entry can be skipped without failing the whole catalog.
type relayResponse struct {
	Status int        `json:"status"`
	Data   *relayData `json:"data"`
}

type relayData struct {
	Title     string            `json:"title"`
	Thumbnail string            `json:"thumbnail"`
	Duration  json.RawMessage   `json:"duration"`
	Resources []json.RawMessage `json:"resources"`
}

type relayResource struct {
	Type            string          `json:"type"`
	Quality         string          `json:"quality"`
	Format          string          `json:"format"`
	Size            json.RawMessage `json:"size"`
	DownloadURL     string          `json:"download_url"`
	DownloadMode    string          `json:"download_mode"`
	ResourceContent string          `json:"resource_content"`
}

// directDownloadMode marks resources whose download_url can be used as-is.
const directDownloadMode = "check_download"

// Resolve performs one POST exchange with the relay and maps the response.
func (r *Relay) Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error) {
	payload, err := json.Marshal(relayRequest{
		URL:  "/media/parse",
		Data: relayRequestData{Origin: "source", Link: sourceURL},
	})
	if err != nil {
		return nil, Permanent(r.Name(), "encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, Permanent(r.Name(), "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}
	if r.opts.Origin != "" {
		req.Header.Set("Origin", r.opts.Origin)
	}
	if r.opts.Referer != "" {
		req.Header.Set("Referer", r.opts.Referer)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, classify(r.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Transient(r.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, classify(r.Name(), "reading response", err)
	}

	var parsed relayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, Transient(r.Name(), "parsing response", err)
	}
	if parsed.Status != 1 || parsed.Data == nil {
		return nil, Permanent(r.Name(), fmt.Sprintf("relay refused content (status %d)", parsed.Status), nil)
	}

	return r.toCatalog(parsed.Data), nil
}

func (r *Relay) toCatalog(d *relayData) *media.Catalog {
	catalog := &media.Catalog{
		Title:           d.Title,
		ThumbnailURL:    d.Thumbnail,
		DurationSeconds: parseDuration(d.Duration),
		Provider:        r.Name(),
	}

	for i, raw := range d.Resources {
		var res relayResource
		if err := json.Unmarshal(raw, &res); err != nil {
			logrus.WithFields(logrus.Fields{"provider": r.Name(), "index": i}).
				Debugf("skipping malformed resource: %v", err)
			continue
		}
		rendition, ok := mapRelayResource(res)
		if !ok {
			continue
		}
		catalog.Renditions = append(catalog.Renditions, rendition)
	}

	return catalog
}

// mapRelayResource converts one relay resource. Entries with an unknown type
// tag or without quality/format are dropped. A download_url counts as a
// direct link only in check_download mode; other modes need conversion the
// relay does not do for us.
func mapRelayResource(res relayResource) (media.Rendition, bool) {
	var kind media.Kind
	switch res.Type {
	case "video":
		kind = media.Video
	case "audio":
		kind = media.Audio
	default:
		return media.Rendition{}, false
	}
	if res.Quality == "" || res.Format == "" {
		return media.Rendition{}, false
	}

	rendition := media.Rendition{
		Kind:      kind,
		Quality:   res.Quality,
		Format:    res.Format,
		SizeBytes: parseSize(res.Size),
	}

	switch {
	case res.DownloadMode == directDownloadMode && res.DownloadURL != "":
		rendition.Hint = media.HintDirectURL
		rendition.Locator = res.DownloadURL
	case res.ResourceContent != "":
		rendition.Hint = media.HintEmbedded
		rendition.Locator = res.ResourceContent
	default:
		rendition.Hint = media.HintUnknown
	}

	return rendition, true
}

// parseSize accepts a JSON number or numeric string; anything else is unknown (0).
func parseSize(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return int64(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

// parseDuration accepts seconds as a JSON number or numeric string, or a
// "mm:ss" / "hh:mm:ss" clock string.
func parseDuration(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	return parseClock(s)
}

// parseClock parses "ss", "mm:ss" or "hh:mm:ss" into seconds; 0 if malformed.
func parseClock(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	total := 0
	for _, part := range strings.Split(s, ":") {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return 0
		}
		total = total*60 + v
	}
	return total
}
