// package providers defines interface Provider for fetching media from upstream platforms
//
// YouTube (converter API + scraper mirrors), Spotify, TikTok
package providers

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/opexdevelop/mediacache/internal/models"
)

// Provider is one source of downloadable media. Implementations resolve an
// upstream id to a title and stream the requested format variant.
type Provider interface {
	// ResolveTitle fetches the display title for an upstream id without
	// starting a download.
	ResolveTitle(ctx context.Context, id string) (string, error)

	// Download resolves formats for the id, selects the closest match to the
	// requested kind/quality and opens a byte stream for it. The returned
	// stream must be closed by the caller on every path.
	Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*Stream, error)

	// Name returns the provider name (e.g. "cnv", "invidious")
	Name() string
}

// Stream is an open media transfer from an upstream provider.
type Stream struct {
	Body        io.ReadCloser
	Filename    string // suggested filename, may be empty
	ContentType string
	Size        int64 // -1 when unknown
}

// Close releases the underlying connection. Safe on a partially consumed
// stream; an unclosed stream leaks the upstream connection.
func (s *Stream) Close() error {
	if s == nil || s.Body == nil {
		return nil
	}
	return s.Body.Close()
}

// ResolveInfo is the output of a format resolution pass against one backend.
type ResolveInfo struct {
	Title      string
	Candidates []models.FormatCandidate
	Referer    string // referer to send when fetching candidate URLs
	Origin     string // backend instance that answered
}

// newStream builds a Stream from a download response, pulling the suggested
// filename out of Content-Disposition when the upstream provides one.
func newStream(resp *http.Response) *Stream {
	s := &Stream{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			s.Filename = params["filename"]
		}
	}

	return s
}
