package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"vidrelay/internal/delivery"
	"vidrelay/internal/history"
	"vidrelay/internal/httputil"
	"vidrelay/internal/media"
)

type renditionJSON struct {
	Quality       string `json:"quality"`
	Format        string `json:"format"`
	Size          int64  `json:"size"`
	HasDirectLink bool   `json:"has_direct_link"`
}

type infoResponse struct {
	Status    string          `json:"status"`
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail"`
	Duration  int             `json:"duration"`
	VideoID   string          `json:"video_id"`
	Provider  string          `json:"provider"`
	Videos    []renditionJSON `json:"videos"`
	Audios    []renditionJSON `json:"audios"`
}

func toJSON(rs []media.Rendition) []renditionJSON {
	return lo.Map(rs, func(r media.Rendition, _ int) renditionJSON {
		return renditionJSON{
			Quality:       r.Quality,
			Format:        r.Format,
			Size:          r.SizeBytes,
			HasDirectLink: r.HasDirectLink(),
		}
	})
}

func sourceURL(r *http.Request) (string, error) {
	src := strings.TrimSpace(r.URL.Query().Get("url"))
	if src == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if err := httputil.ValidateURL(src); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return src, nil
}

func (s *Server) HandleInfo(w http.ResponseWriter, r *http.Request) {
	src, err := sourceURL(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	catalog, err := s.resolver.Resolve(r.Context(), src)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, infoResponse{
		Status:    "success",
		Title:     catalog.Title,
		Thumbnail: catalog.ThumbnailURL,
		Duration:  catalog.DurationSeconds,
		VideoID:   string(catalog.ContentID),
		Provider:  catalog.Provider,
		Videos:    toJSON(catalog.Videos()),
		Audios:    toJSON(catalog.Audios()),
	})
}

// selection is the parsed rendition constraint of a delivery request.
type selection struct {
	source  string
	kind    media.Kind
	quality string
	format  string
}

func parseSelection(r *http.Request, defaultQuality string) (selection, error) {
	src, err := sourceURL(r)
	if err != nil {
		return selection{}, err
	}
	q := r.URL.Query()

	sel := selection{
		source:  src,
		quality: strings.TrimSpace(q.Get("quality")),
		format:  strings.TrimSpace(q.Get("format")),
	}
	if sel.quality == "" {
		sel.quality = defaultQuality
	}
	if sel.quality == "" {
		return selection{}, fmt.Errorf("%w: quality is required", ErrInvalidInput)
	}
	if sel.format == "" {
		sel.format = "mp4"
	}

	kind := q.Get("kind")
	if kind == "" {
		kind = q.Get("type")
	}
	if kind == "" {
		sel.kind = media.Video
	} else if sel.kind, err = media.ParseKind(kind); err != nil {
		return selection{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return sel, nil
}

// HandleDownload redirects to, buffers or (for range requests) relays the
// selected rendition.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, "")
	if err != nil {
		writeErr(w, err)
		return
	}
	s.deliver(w, r, sel, delivery.IntentDownload)
}

// HandleStream relays the selected rendition, honoring the client's Range header.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, "360p")
	if err != nil {
		writeErr(w, err)
		return
	}
	s.deliver(w, r, sel, delivery.IntentStream)
}

func (s *Server) deliver(w http.ResponseWriter, r *http.Request, sel selection, intent delivery.Intent) {
	ctx := r.Context()
	log := logrus.WithFields(logrus.Fields{
		"source":  sel.source,
		"kind":    sel.kind.String(),
		"quality": sel.quality,
		"format":  sel.format,
	})

	catalog, err := s.resolver.Resolve(ctx, sel.source)
	if err != nil {
		s.metrics.Delivery("failed")
		writeErr(w, err)
		return
	}

	var res delivery.Result
	rendition, err := media.Select(catalog, sel.kind, sel.quality, sel.format)
	if err == nil {
		var out delivery.Outcome
		out, err = s.engine.DeliverFrom(ctx, s.resolver, sel.source, catalog, rendition,
			delivery.Request{Intent: intent, RangeHeader: r.Header.Get("Range")})
		res, catalog, rendition = out.Result, out.Catalog, out.Rendition
	}
	if err != nil {
		log.WithError(err).Warn("delivery failed")
		s.metrics.Delivery("failed")
		writeErr(w, err)
		return
	}

	n, err := res.Serve(w, r)
	if err != nil {
		// Headers are already out; all that is left is to log.
		log.WithError(err).Warn("client transfer interrupted")
	}
	s.metrics.Delivery(res.Mode())
	if res.Mode() == "streamed" {
		s.metrics.StreamBytes(n)
	}

	s.record(context.WithoutCancel(ctx), sel, catalog, rendition, res.Mode())
}

func (s *Server) record(ctx context.Context, sel selection, catalog *media.Catalog, rendition media.Rendition, mode string) {
	if s.history == nil {
		return
	}
	_, err := s.history.Record(ctx, history.Entry{
		SourceURL: sel.source,
		ContentID: string(catalog.ContentID),
		Title:     catalog.Title,
		Provider:  catalog.Provider,
		Kind:      rendition.Kind.String(),
		Quality:   rendition.Quality,
		Format:    rendition.Format,
		Mode:      mode,
	})
	if err != nil {
		logrus.WithError(err).Debug("recording delivery")
	}
}
