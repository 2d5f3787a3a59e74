// Package delivery turns a selected rendition into bytes for the client:
// a redirect, a decoded in-memory payload or a streamed upstream relay.
package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"vidrelay/internal/httputil"
	"vidrelay/internal/media"
)

// DefaultChunkSize bounds each read of a streamed body.
const DefaultChunkSize = 32 * 1024

// Intent is what the caller wants to do with the rendition.
type Intent int

const (
	IntentDownload Intent = iota
	IntentStream
)

// Request is one delivery request.
type Request struct {
	Rendition   media.Rendition
	Title       string
	Intent      Intent
	RangeHeader string // forwarded upstream verbatim when streaming
}

// Engine executes deliveries. It is safe for concurrent use.
type Engine struct {
	client    *http.Client
	chunkSize int
}

// New creates an Engine. The client should not carry an overall timeout
// unless streams are meant to be cut after it.
func New(client *http.Client, chunkSize int) *Engine {
	if client == nil {
		client = httputil.NewClient(0)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Engine{client: client, chunkSize: chunkSize}
}

// Deliver picks the strategy from the rendition's hint and the request intent.
// Direct links are redirected for plain downloads and relayed when the caller
// streams or asked for a byte range.
func (e *Engine) Deliver(ctx context.Context, req Request) (Result, error) {
	r := req.Rendition
	switch r.Hint {
	case media.HintEmbedded:
		return e.buffer(req)
	case media.HintDirectURL:
		if r.Locator == "" {
			return nil, &UnavailableError{Reason: "rendition has no upstream URL"}
		}
		if req.Intent == IntentDownload && req.RangeHeader == "" {
			return &Redirect{URL: r.Locator}, nil
		}
		return e.stream(ctx, r.Locator, req.RangeHeader)
	default:
		return nil, &UnavailableError{Reason: "rendition has no direct link or embedded content"}
	}
}

func (e *Engine) buffer(req Request) (*Buffered, error) {
	body, err := decodeEmbedded(req.Rendition.Locator)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &Buffered{
		Body:     body,
		Filename: httputil.AttachmentName(req.Title, req.Rendition.Quality, req.Rendition.Format),
		MimeType: MimeType(req.Rendition.Kind, req.Rendition.Format),
	}, nil
}

// decodeEmbedded accepts standard or URL-safe base64, padded or raw.
func decodeEmbedded(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty payload")
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// MimeType derives a response content type from the rendition kind and format.
func MimeType(kind media.Kind, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch kind {
	case media.Video:
		if format == "" {
			format = "mp4"
		}
		return "video/" + format
	case media.Audio:
		if format == "mp4" {
			return "audio/mp4"
		}
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// forwardedHeaders are the only upstream headers relayed to the client.
var forwardedHeaders = []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"}

func (e *Engine) stream(ctx context.Context, upstream, rangeHeader string) (*Streamed, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream, nil)
	if err != nil {
		return nil, &UnavailableError{Reason: "building upstream request", Err: err}
	}
	httputil.SetBrowserHeaders(httpReq, "*/*")
	if rangeHeader != "" {
		httpReq.Header.Set("Range", rangeHeader)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &UnavailableError{Reason: "upstream unreachable", Err: err}
	}
	if resp.Body == nil {
		return nil, &UnavailableError{Reason: "upstream returned no body", Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, &UnavailableError{Reason: "unexpected upstream status", Status: resp.StatusCode}
	}

	header := make(http.Header, len(forwardedHeaders))
	for _, name := range forwardedHeaders {
		if v := resp.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}

	logrus.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"range":  rangeHeader,
	}).Debug("relaying upstream stream")

	return &Streamed{
		Status:    resp.StatusCode,
		Header:    header,
		Body:      resp.Body,
		chunkSize: e.chunkSize,
	}, nil
}
