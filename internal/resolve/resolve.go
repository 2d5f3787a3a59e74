// Package resolve tries catalog providers in order until one yields renditions.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vidrelay/internal/identity"
	"vidrelay/internal/media"
	"vidrelay/internal/metrics"
	"vidrelay/internal/provider"
)

// ErrEmptyCatalog records a provider that answered without any usable rendition.
var ErrEmptyCatalog = errors.New("no renditions")

// Attempt is one failed provider call.
type Attempt struct {
	Provider string
	Err      error
}

// AllProvidersFailedError is returned when no provider produced a usable catalog.
type AllProvidersFailedError struct {
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no providers configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Provider, a.Err)
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Resolver runs providers strictly in sequence.
type Resolver struct {
	providers []provider.Provider
	metrics   *metrics.Metrics
}

// New creates a Resolver. m may be nil.
func New(providers []provider.Provider, m *metrics.Metrics) *Resolver {
	return &Resolver{providers: providers, metrics: m}
}

// Resolve returns the first catalog with at least one rendition.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error) {
	return resolveWith(ctx, r.providers, r.metrics, sourceURL)
}

// ResolveAfter resolves using only the providers that come after the named
// one. It is used when a catalog from that provider turned out undeliverable.
func (r *Resolver) ResolveAfter(ctx context.Context, sourceURL, after string) (*media.Catalog, error) {
	for i, p := range r.providers {
		if p.Name() == after {
			return resolveWith(ctx, r.providers[i+1:], r.metrics, sourceURL)
		}
	}
	return nil, &AllProvidersFailedError{}
}

func resolveWith(ctx context.Context, providers []provider.Provider, m *metrics.Metrics, sourceURL string) (*media.Catalog, error) {
	var attempts []Attempt

	for i, p := range providers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			break
		}

		log := logrus.WithFields(logrus.Fields{
			"provider": p.Name(),
			"source":   sourceURL,
			"attempt":  i + 1,
		})

		catalog, err := p.Resolve(ctx, sourceURL)
		if err != nil {
			log.Warnf("provider failed: %v", err)
			m.ProviderAttempt(p.Name(), metrics.OutcomeError)
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}
		if catalog != nil {
			catalog.Dedupe()
		}
		if catalog == nil || len(catalog.Renditions) == 0 {
			log.Warn("provider returned no renditions")
			m.ProviderAttempt(p.Name(), metrics.OutcomeEmpty)
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: ErrEmptyCatalog})
			continue
		}

		if catalog.ContentID == "" {
			if id, ok := identity.Extract(sourceURL); ok {
				catalog.ContentID = id
			}
		}
		catalog.Provider = p.Name()

		log.WithField("renditions", len(catalog.Renditions)).Debug("catalog resolved")
		m.ProviderAttempt(p.Name(), metrics.OutcomeSuccess)
		return catalog, nil
	}

	return nil, &AllProvidersFailedError{Attempts: attempts}
}
