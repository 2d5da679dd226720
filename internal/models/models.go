package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opexdevelop/mediacache/internal/shared"
)

// SourceKind identifies the upstream platform a piece of media comes from.
type SourceKind string

const (
	SourceYouTube SourceKind = "yt"
	SourceSpotify SourceKind = "spotify"
	SourceTikTok  SourceKind = "tk"
)

// MediaKind is the caller-facing media type vocabulary. Backend-specific
// vocabularies (mp3/mp4) are normalized inside providers.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Valid reports whether the kind is one of the known media kinds.
func (k MediaKind) Valid() bool {
	return k == KindAudio || k == KindVideo
}

// FormatLabel returns the container-style label used in cache keys and
// backend requests ("mp3" for audio, "mp4" for video).
func (k MediaKind) FormatLabel() string {
	if k == KindAudio {
		return "mp3"
	}
	return "mp4"
}

// DefaultQuality returns the quality used when the caller does not name one.
func (k MediaKind) DefaultQuality() string {
	if k == KindAudio {
		return "128"
	}
	return "360"
}

// SourceRef identifies a piece of media on an upstream platform.
// Derived from user input by ParseSource; invalid input yields no ref.
type SourceRef struct {
	Kind SourceKind
	ID   string
}

var (
	youtubeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	spotifyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	tiktokIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ParseSource parses a user-supplied URL or bare identifier into a SourceRef.
//
// Accepted forms:
//   - YouTube: watch/shorts/embed URLs, youtu.be short links, bare 11-char ids
//   - Spotify: open.spotify.com/track/... URLs
//   - TikTok: tiktok.com video URLs and vm.tiktok.com short links
func ParseSource(raw string) (SourceRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SourceRef{}, fmt.Errorf("%w: empty input", shared.ErrInvalidSource)
	}

	if youtubeIDPattern.MatchString(raw) {
		return SourceRef{Kind: SourceYouTube, ID: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return SourceRef{}, fmt.Errorf("%w: %q", shared.ErrInvalidSource, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "youtube.com" || host == "m.youtube.com" || host == "music.youtube.com":
		if id := u.Query().Get("v"); youtubeIDPattern.MatchString(id) {
			return SourceRef{Kind: SourceYouTube, ID: id}, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := pathSegment(u.Path, 2); youtubeIDPattern.MatchString(id) {
					return SourceRef{Kind: SourceYouTube, ID: id}, nil
				}
			}
		}
	case host == "youtu.be":
		if id := pathSegment(u.Path, 1); youtubeIDPattern.MatchString(id) {
			return SourceRef{Kind: SourceYouTube, ID: id}, nil
		}
	case host == "open.spotify.com":
		if strings.HasPrefix(u.Path, "/track/") {
			if id := pathSegment(u.Path, 2); spotifyIDPattern.MatchString(id) {
				return SourceRef{Kind: SourceSpotify, ID: id}, nil
			}
		}
	case strings.HasSuffix(host, "tiktok.com"):
		if idx := strings.LastIndex(u.Path, "/video/"); idx >= 0 {
			if id := pathSegment(u.Path[idx:], 2); tiktokIDPattern.MatchString(id) {
				return SourceRef{Kind: SourceTikTok, ID: id}, nil
			}
		}
		// Short links carry an opaque code instead of a numeric video id.
		if host == "vm.tiktok.com" || host == "vt.tiktok.com" {
			if id := pathSegment(u.Path, 1); tiktokIDPattern.MatchString(id) {
				return SourceRef{Kind: SourceTikTok, ID: id}, nil
			}
		}
	}

	return SourceRef{}, fmt.Errorf("%w: %q", shared.ErrInvalidSource, raw)
}

// pathSegment returns the nth slash-separated segment of a URL path (1-based).
func pathSegment(path string, n int) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if n < 1 || n > len(parts) {
		return ""
	}
	return parts[n-1]
}

// CanonicalURL reconstructs the canonical upstream URL for the ref.
func (r SourceRef) CanonicalURL() string {
	switch r.Kind {
	case SourceYouTube:
		return "https://www.youtube.com/watch?v=" + r.ID
	case SourceSpotify:
		return "https://open.spotify.com/track/" + r.ID
	case SourceTikTok:
		return "https://www.tiktok.com/video/" + r.ID
	}
	return ""
}

// CacheKey builds the deterministic delivery-cache key for one deliverable
// variant of this ref. YouTube keys carry format and quality; Spotify tracks
// are a single fixed-quality audio artifact; TikTok keys carry format only.
func (r SourceRef) CacheKey(kind MediaKind, quality string) string {
	switch r.Kind {
	case SourceSpotify:
		return fmt.Sprintf("spotify:%s", r.ID)
	case SourceTikTok:
		return fmt.Sprintf("tk:%s:%s", r.ID, kind.FormatLabel())
	default:
		return fmt.Sprintf("yt:%s:%s:%s", r.ID, kind.FormatLabel(), quality)
	}
}

// ParseCacheKey is the inverse of [SourceRef.CacheKey].
func ParseCacheKey(key string) (ref SourceRef, kind MediaKind, quality string, err error) {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 2 && parts[0] == string(SourceSpotify):
		return SourceRef{Kind: SourceSpotify, ID: parts[1]}, KindAudio, "", nil
	case len(parts) == 3 && parts[0] == string(SourceTikTok):
		return SourceRef{Kind: SourceTikTok, ID: parts[1]}, kindFromLabel(parts[2]), "", nil
	case len(parts) == 4 && parts[0] == string(SourceYouTube):
		return SourceRef{Kind: SourceYouTube, ID: parts[1]}, kindFromLabel(parts[2]), parts[3], nil
	}
	return SourceRef{}, "", "", fmt.Errorf("malformed cache key %q", key)
}

func kindFromLabel(label string) MediaKind {
	if label == "mp3" || label == string(KindAudio) {
		return KindAudio
	}
	return KindVideo
}

// QualityValue extracts the numeric component of a quality label such as
// "320kbps" or "720p". Returns 0 when the label carries no digits.
func QualityValue(s string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// FormatCandidate is one downloadable format descriptor produced transiently
// by a format resolver. Unparseable upstream entries are dropped at parse
// time rather than propagated.
type FormatCandidate struct {
	Kind        MediaKind // audio or video
	Container   string    // container/extension reported upstream (m4a, webm, mp4)
	Label       string    // raw upstream label, for logging
	BitrateKbps int       // 0 when unknown
	ResolutionP int       // 0 when unknown
	URL         string    // direct fetch URL
	Referer     string    // referer required by the fetch URL
	Origin      string    // backend instance the candidate came from
}

// CacheEntry maps a cache key to a durable store handle.
type CacheEntry struct {
	Key        string
	Handle     string
	InsertedAt time.Time
}

// Validate checks that the entry can be persisted.
func (e CacheEntry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("cache entry missing key")
	}
	if e.Handle == "" {
		return fmt.Errorf("cache entry %s missing handle", e.Key)
	}
	return nil
}
