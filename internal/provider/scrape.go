package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"vidrelay/internal/httputil"
	"vidrelay/internal/identity"
	"vidrelay/internal/media"
)

// ScrapeOptions configures a Scrape provider.
type ScrapeOptions struct {
	Base         string // converter site, receives the videoId form post
	FrameBase    string // host of the widget iframe when its src is relative
	DownloadBase string // host serving the final download links
	Timeout      time.Duration
}

// Scrape resolves catalogs by parsing a converter site's HTML download table.
type Scrape struct {
	opts   ScrapeOptions
	client *http.Client
}

// NewScrape creates a Scrape provider.
func NewScrape(opts ScrapeOptions) *Scrape {
	if opts.Timeout <= 0 {
		opts.Timeout = httputil.DefaultTimeout
	}
	return &Scrape{
		opts:   opts,
		client: httputil.NewClient(opts.Timeout),
	}
}

func (s *Scrape) Name() string { return "scrape" }

// getLinkPattern matches the onclick handler on a table row's download button.
var getLinkPattern = regexp.MustCompile(`get_link\('([^']+)','([^']+)','([^']+)'`)

// Resolve posts the video ID to the converter, follows its widget iframe and
// parses the download table.
func (s *Scrape) Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error) {
	id, ok := identity.Extract(sourceURL)
	if !ok {
		return nil, Permanent(s.Name(), "source URL has no recognizable video ID", nil)
	}

	form := url.Values{}
	form.Set("videoId", string(id))

	convertURL := strings.TrimRight(s.opts.Base, "/") + "/convert/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, convertURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, Permanent(s.Name(), "building request", err)
	}
	httputil.SetBrowserHeaders(req, "text/html")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", s.opts.Base)
	req.Header.Set("Referer", strings.TrimRight(s.opts.Base, "/")+"/search/")

	page, err := s.fetchDocument(req)
	if err != nil {
		return nil, err
	}

	src, exists := page.Find("#widgetv2Api").Attr("src")
	if !exists || src == "" {
		return nil, Permanent(s.Name(), "widget iframe not found", nil)
	}
	frameURL, err := s.frameURL(src, id)
	if err != nil {
		return nil, Permanent(s.Name(), "resolving iframe URL", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, frameURL, nil)
	if err != nil {
		return nil, Permanent(s.Name(), "building iframe request", err)
	}
	httputil.SetBrowserHeaders(req, "text/html")

	frame, err := s.fetchDocument(req)
	if err != nil {
		return nil, err
	}

	catalog := parseFrame(frame, id, s.opts.DownloadBase)
	catalog.Provider = s.Name()
	return catalog, nil
}

// frameURL makes the iframe src absolute and ensures it carries the video ID.
func (s *Scrape) frameURL(src string, id media.ContentID) (string, error) {
	base, err := url.Parse(strings.TrimRight(s.opts.FrameBase, "/") + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	u := base.ResolveReference(ref)
	q := u.Query()
	if q.Get("videoId") == "" {
		q.Set("videoId", string(id))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Scrape) fetchDocument(req *http.Request) (*goquery.Document, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify(s.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Transient(s.Name(), fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, req.URL.Host), nil)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, Transient(s.Name(), "parsing HTML", err)
	}
	return doc, nil
}

// parseFrame extracts metadata and download rows from the widget document.
func parseFrame(doc *goquery.Document, id media.ContentID, downloadBase string) *media.Catalog {
	cover := doc.Find("div.thumbnail.cover")

	title := strings.TrimSpace(cover.Find("a").AttrOr("title", ""))
	if title == "" {
		title = "Unknown Title"
	}
	thumb := cover.Find("img").AttrOr("src", "")
	if strings.HasPrefix(thumb, "//") {
		thumb = "https:" + thumb
	}

	catalog := &media.Catalog{
		Title:           title,
		ThumbnailURL:    thumb,
		DurationSeconds: parseClock(doc.Find("span.duration").First().Text()),
		ContentID:       id,
	}

	doc.Find("div.table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		quality := strings.TrimSpace(cells.Eq(0).Text())
		format := strings.ToLower(strings.TrimSpace(cells.Eq(1).Text()))
		size := strings.TrimSpace(cells.Eq(2).Text())
		if quality == "" || format == "" {
			return
		}

		onclick := row.Find("button.btn-file").AttrOr("onclick", "")
		m := getLinkPattern.FindStringSubmatch(onclick)
		if m == nil {
			return
		}

		link := fmt.Sprintf("%s/download/get?%s", strings.TrimRight(downloadBase, "/"), url.Values{
			"videoId": {string(id)},
			"k":       {m[3]},
			"t":       {format},
		}.Encode())

		catalog.Renditions = append(catalog.Renditions, media.Rendition{
			Kind:      scrapedKind(quality, format),
			Quality:   quality,
			Format:    format,
			SizeBytes: parseHumanSize(size),
			Hint:      media.HintDirectURL,
			Locator:   link,
		})
	})

	return catalog
}

var audioFormats = map[string]bool{
	"mp3": true, "m4a": true, "aac": true, "opus": true, "ogg": true, "wav": true, "flac": true,
}

func scrapedKind(quality, format string) media.Kind {
	if audioFormats[format] || strings.HasSuffix(strings.ToLower(quality), "kbps") {
		return media.Audio
	}
	return media.Video
}

var humanSizePattern = regexp.MustCompile(`(?i)^([\d.]+)\s*([KMG]?B)$`)

// parseHumanSize parses sizes such as "12.3 MB"; unknown formats yield 0.
func parseHumanSize(s string) int64 {
	m := humanSizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	mult := map[string]float64{"B": 1, "KB": 1 << 10, "MB": 1 << 20, "GB": 1 << 30}[strings.ToUpper(m[2])]
	return int64(v * mult)
}
