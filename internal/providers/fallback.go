package providers

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
)

// Fallback composes two independently implemented providers behind one
// [Provider]. The primary is always attempted first; any failure is logged
// and the secondary is tried transparently, so callers see one outcome.
// Both failing yields a single aggregated error carrying both messages.
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    *log.Logger
}

// NewFallback creates a composite provider over primary and secondary.
func NewFallback(primary, secondary Provider, logger *log.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Name returns the provider name.
func (f *Fallback) Name() string {
	return fmt.Sprintf("%s+%s", f.primary.Name(), f.secondary.Name())
}

// ResolveTitle tries the primary, then the secondary.
func (f *Fallback) ResolveTitle(ctx context.Context, id string) (string, error) {
	title, primaryErr := f.primary.ResolveTitle(ctx, id)
	if primaryErr == nil {
		return title, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	f.logger.Warn("primary failed to resolve title, switching to fallback",
		"primary", f.primary.Name(), "err", primaryErr)

	title, secondaryErr := f.secondary.ResolveTitle(ctx, id)
	if secondaryErr == nil {
		return title, nil
	}

	return "", f.aggregate(primaryErr, secondaryErr)
}

// Download tries the primary, then the secondary.
func (f *Fallback) Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*Stream, error) {
	stream, primaryErr := f.primary.Download(ctx, id, kind, quality)
	if primaryErr == nil {
		return stream, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.logger.Warn("primary provider failed, switching to fallback",
		"primary", f.primary.Name(), "secondary", f.secondary.Name(), "err", primaryErr)

	stream, secondaryErr := f.secondary.Download(ctx, id, kind, quality)
	if secondaryErr == nil {
		return stream, nil
	}

	return nil, f.aggregate(primaryErr, secondaryErr)
}

func (f *Fallback) aggregate(primaryErr, secondaryErr error) error {
	return fmt.Errorf("%w: %s: %v; %s: %v", shared.ErrBackendUnavailable,
		f.primary.Name(), primaryErr, f.secondary.Name(), secondaryErr)
}
