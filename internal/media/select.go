package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrNotFound is returned when no rendition satisfies a selection.
var ErrNotFound = errors.New("rendition not found")

// NotFoundError describes a failed selection and lists what the catalog does offer.
type NotFoundError struct {
	Kind      Kind
	Quality   string
	Format    string
	Available []string // "quality/format" labels of the requested kind
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no %s rendition with quality %q and format %q", e.Kind, e.Quality, e.Format)
	if len(e.Available) > 0 {
		msg += " (available: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Select picks the first rendition matching kind exactly, quality by exact
// string equality and format case-insensitively. No normalization is applied:
// "720p" does not match "720P" or "HD".
func Select(c *Catalog, kind Kind, quality, format string) (Rendition, error) {
	if c != nil {
		for _, r := range c.Renditions {
			if r.Kind == kind && r.Quality == quality && strings.EqualFold(r.Format, format) {
				return r, nil
			}
		}
	}

	nf := &NotFoundError{Kind: kind, Quality: quality, Format: format}
	if c != nil {
		nf.Available = lo.Map(c.ofKind(kind), func(r Rendition, _ int) string {
			return r.Label()
		})
	}
	return Rendition{}, nf
}
