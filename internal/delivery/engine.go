// package delivery orchestrates the cache-or-fetch flow for media artifacts.
//
// The core abstraction is [Engine]: resolve a source reference, answer cache
// hits from the store, and on a miss route the download through the
// serialized queue, upload the artifact to object storage, and record the
// handle. Operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/providers"
	"github.com/opexdevelop/mediacache/internal/queue"
	"github.com/opexdevelop/mediacache/internal/repositories"
	"github.com/opexdevelop/mediacache/internal/shared"
	"github.com/opexdevelop/mediacache/internal/storage"
)

// ResolveResult contains source metadata without touching the cache.
type ResolveResult struct {
	Ref   models.SourceRef // Parsed source reference
	Key   string           // Cache key a delivery of this variant would use
	URL   string           // Canonical source URL
	Title string           // Display title from the provider
}

// DeliverResult contains the outcome of a delivery.
type DeliverResult struct {
	Key      string `json:"key"`                // Cache key for the artifact
	Handle   string `json:"handle"`             // Storage handle to replay
	Cached   bool   `json:"cached"`             // Whether the handle came from the cache
	Filename string `json:"filename,omitempty"` // Artifact filename (empty on cache hits)
	Size     int64  `json:"size,omitempty"`     // Artifact size in bytes, 0 when unknown
}

// Engine coordinates providers, the download queue, object storage and the
// cache store.
type Engine struct {
	providers map[models.SourceKind]providers.Provider
	store     repositories.CacheStore
	objects   storage.ObjectStore
	queue     *queue.Queue
	logger    *log.Logger
}

// NewEngine creates an Engine over the given provider registry.
func NewEngine(
	registry map[models.SourceKind]providers.Provider,
	store repositories.CacheStore,
	objects storage.ObjectStore,
	q *queue.Queue,
	logger *log.Logger,
) *Engine {
	return &Engine{
		providers: registry,
		store:     store,
		objects:   objects,
		queue:     q,
		logger:    logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *Engine) provider(kind models.SourceKind) (providers.Provider, error) {
	p, ok := e.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no provider for source %q", shared.ErrInvalidSource, kind)
	}
	return p, nil
}

// Resolve parses raw into a source reference, fetches its title from the
// provider and reports the cache key the requested variant would land under.
// Resolution bypasses the download queue; only downloads are serialized.
func (e *Engine) Resolve(ctx context.Context, raw string, kind models.MediaKind, quality string) (*ResolveResult, error) {
	ref, err := models.ParseSource(raw)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidKind, kind)
	}

	p, err := e.provider(ref.Kind)
	if err != nil {
		return nil, err
	}

	title, err := p.ResolveTitle(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve title: %w", err)
	}

	return &ResolveResult{
		Ref:   ref,
		Key:   ref.CacheKey(kind, quality),
		URL:   ref.CanonicalURL(),
		Title: title,
	}, nil
}

// Deliver returns a storage handle for the requested artifact, fetching and
// caching it on a miss.
func (e *Engine) Deliver(ctx context.Context, raw string, kind models.MediaKind, quality string, progress chan<- ProgressUpdate) (*DeliverResult, error) {
	ref, err := models.ParseSource(raw)
	if err != nil {
		return nil, err
	}
	return e.deliverRef(ctx, ref, kind, quality, progress)
}

// DeliverKey is Deliver for an already-formed cache key.
func (e *Engine) DeliverKey(ctx context.Context, key string, progress chan<- ProgressUpdate) (*DeliverResult, error) {
	ref, kind, quality, err := models.ParseCacheKey(key)
	if err != nil {
		return nil, err
	}
	return e.deliverRef(ctx, ref, kind, quality, progress)
}

// ReportDeliveryFailure handles a consumer reporting that a cached handle no
// longer replays. The stale entry is evicted so the caller's next delivery
// for the key repeats the fetch; the re-fetch itself stays with the caller
// so a persistently broken store cannot loop inside the engine.
func (e *Engine) ReportDeliveryFailure(ctx context.Context, key string) error {
	if _, _, _, err := models.ParseCacheKey(key); err != nil {
		return err
	}

	e.logger.Warn("cached handle reported stale, evicting", "key", key)
	if err := e.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: failed to evict %s: %v", shared.ErrStaleHandle, key, err)
	}
	return nil
}

func (e *Engine) deliverRef(ctx context.Context, ref models.SourceRef, kind models.MediaKind, quality string, progress chan<- ProgressUpdate) (*DeliverResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidKind, kind)
	}

	key := ref.CacheKey(kind, quality)

	e.sendProgress(progress, checkCacheUpdate(key))
	entry, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	if entry != nil {
		e.logger.Debug("cache hit", "key", key, "handle", entry.Handle)
		e.sendProgress(progress, cacheHitUpdate(key, entry.Handle))
		return &DeliverResult{Key: key, Handle: entry.Handle, Cached: true}, nil
	}

	p, err := e.provider(ref.Kind)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, enqueueUpdate(p.Name(), e.queue.Len()))

	// Only the provider invocation is serialized; the upload streams
	// concurrently with whatever the queue runs next.
	stream, err := queue.Submit(ctx, e.queue, func(ctx context.Context) (*providers.Stream, error) {
		return p.Download(ctx, ref.ID, kind, quality)
	})
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer stream.Close()

	filename := stream.Filename
	if filename == "" {
		// Upstreams without a Content-Disposition name get a unique one so
		// repeated variants of one source never collide in storage.
		filename = fmt.Sprintf("%s-%s.%s", ref.ID, shared.GenerateID()[:8], kind.FormatLabel())
	}

	e.sendProgress(progress, downloadUpdate(filename))
	e.sendProgress(progress, uploadUpdate(filename))

	handle, err := e.objects.Upload(ctx, stream.Body, filename, stream.ContentType)
	if err != nil {
		return nil, err
	}

	entry = &models.CacheEntry{Key: key, Handle: handle, InsertedAt: time.Now()}
	if err := e.store.Put(ctx, entry); err != nil {
		// The consumer still gets their artifact; only reuse is lost.
		e.logger.Warn("failed to record cache entry", "key", key, "err", err)
	} else {
		e.sendProgress(progress, recordUpdate(key, handle))
	}

	result := &DeliverResult{Key: key, Handle: handle, Filename: filename}
	if stream.Size > 0 {
		result.Size = stream.Size
	}
	return result, nil
}
