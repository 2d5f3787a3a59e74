package delivery

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"vidrelay/internal/media"
)

// Reresolver resolves a source again using only the providers after the
// named one.
type Reresolver interface {
	ResolveAfter(ctx context.Context, sourceURL, after string) (*media.Catalog, error)
}

// Outcome is a successful delivery together with the catalog and rendition
// that produced it.
type Outcome struct {
	Result    Result
	Catalog   *media.Catalog
	Rendition media.Rendition
}

// DeliverFrom delivers rendition, taken from catalog. When it cannot be used
// at all (an embedded payload that fails to decode, or no direct link and no
// embedded content) the same kind, quality and format is looked up in the
// catalogs of the providers after the one that produced it. The first error
// is returned if none of them yields a deliverable rendition.
func (e *Engine) DeliverFrom(ctx context.Context, next Reresolver, sourceURL string, catalog *media.Catalog, rendition media.Rendition, req Request) (Outcome, error) {
	want := rendition
	first := Outcome{Catalog: catalog, Rendition: rendition}
	var firstErr error
	for {
		req.Rendition = rendition
		req.Title = catalog.Title
		res, err := e.Deliver(ctx, req)
		if err == nil {
			return Outcome{Result: res, Catalog: catalog, Rendition: rendition}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if !unusable(err, rendition) || next == nil {
			return first, firstErr
		}

		logrus.WithFields(logrus.Fields{
			"provider": catalog.Provider,
			"source":   sourceURL,
			"quality":  rendition.Quality,
		}).Warnf("rendition unusable, trying next provider: %v", err)

		after, rerr := next.ResolveAfter(ctx, sourceURL, catalog.Provider)
		if rerr != nil {
			return first, firstErr
		}
		r, serr := media.Select(after, want.Kind, want.Quality, want.Format)
		if serr != nil {
			return first, firstErr
		}
		catalog, rendition = after, r
	}
}

// unusable reports failures that are a property of the rendition rather than
// of the upstream, so another provider's rendition may succeed.
func unusable(err error, r media.Rendition) bool {
	if errors.Is(err, ErrDecode) {
		return true
	}
	return errors.Is(err, ErrUnavailable) && r.Hint != media.HintEmbedded && !r.HasDirectLink()
}
