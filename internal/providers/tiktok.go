// TikTok clip implementation of [Provider]
//
// A single-backend provider over a clip info API: one lookup returns the
// title plus direct URLs for the watermark-free video and the extracted
// audio track, so the requested kind just picks which URL to stream.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
)

// TikTokClip represents a clip info API response.
type TikTokClip struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	VideoURL string `json:"video_url"`
	MusicURL string `json:"music_url"`
}

// TikTok implements [Provider] for TikTok clips.
type TikTok struct {
	apiURL string
	client *http.Client
	logger *log.Logger
}

// NewTikTok creates a clip provider for the given info API base URL.
func NewTikTok(apiURL string, client *http.Client, logger *log.Logger) *TikTok {
	if client == nil {
		client = http.DefaultClient
	}

	return &TikTok{
		apiURL: apiURL,
		client: client,
		logger: logger,
	}
}

// Name returns the provider name.
func (t *TikTok) Name() string {
	return "tiktok"
}

// Clip fetches clip info by id.
func (t *TikTok) Clip(ctx context.Context, id string) (*TikTokClip, error) {
	ref := models.SourceRef{Kind: models.SourceTikTok, ID: id}
	endpoint := fmt.Sprintf("%s/api/info?url=%s", t.apiURL, url.QueryEscape(ref.CanonicalURL()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("clip API error: status %d", resp.StatusCode)
	}

	var clip TikTokClip
	if err := json.NewDecoder(resp.Body).Decode(&clip); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &clip, nil
}

// ResolveTitle returns the clip title, prefixed with the author when known.
func (t *TikTok) ResolveTitle(ctx context.Context, id string) (string, error) {
	clip, err := t.Clip(ctx, id)
	if err != nil {
		return "", err
	}

	if clip.Author != "" {
		return fmt.Sprintf("%s - %s", clip.Author, clip.Title), nil
	}
	return clip.Title, nil
}

// Download streams the clip artifact for the requested kind. Clips carry a
// fixed encoding per kind, so the quality argument is ignored.
func (t *TikTok) Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*Stream, error) {
	clip, err := t.Clip(ctx, id)
	if err != nil {
		return nil, err
	}

	var mediaURL string
	switch kind {
	case models.KindVideo:
		mediaURL = clip.VideoURL
	case models.KindAudio:
		mediaURL = clip.MusicURL
	}
	if mediaURL == "" {
		return nil, fmt.Errorf("%w: no %s stream for clip %s", shared.ErrFormatNotFound, kind, id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	return newStream(resp), nil
}
