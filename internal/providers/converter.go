// Converter API implementation of [Provider]
//
// The primary YouTube backend: a conversion service that accepts a video
// URL plus the requested format/quality and answers with a direct download
// link. Unlike the scraper backend it transcodes server-side, so an audio
// request yields a real MP3 container.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/models"
)

// Converter implements [Provider] against a conversion API.
type Converter struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewConverter creates a converter backend for the given API base URL.
func NewConverter(baseURL string, client *http.Client, logger *log.Logger) *Converter {
	if client == nil {
		client = http.DefaultClient
	}

	return &Converter{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Name returns the provider name.
func (c *Converter) Name() string {
	return "cnv"
}

type convertRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

type convertResponse struct {
	Success     bool   `json:"success"`
	Title       string `json:"title"`
	DownloadURL string `json:"download_url"`
	Error       string `json:"error"`
}

func (c *Converter) doRequest(ctx context.Context, endpoint string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("converter API error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("converter API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// ResolveTitle asks the conversion service for the video title.
func (c *Converter) ResolveTitle(ctx context.Context, id string) (string, error) {
	ref := models.SourceRef{Kind: models.SourceYouTube, ID: id}

	var info struct {
		Title string `json:"title"`
		Error string `json:"error"`
	}
	if err := c.doRequest(ctx, "/api/info", convertRequest{URL: ref.CanonicalURL()}, &info); err != nil {
		return "", err
	}
	if info.Title == "" {
		return "", fmt.Errorf("converter returned no title: %s", info.Error)
	}

	return info.Title, nil
}

// Download requests a conversion and streams the resulting artifact.
// The converter's native vocabulary is mp3/mp4, mapped from the media kind.
func (c *Converter) Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*Stream, error) {
	ref := models.SourceRef{Kind: models.SourceYouTube, ID: id}

	var conv convertResponse
	payload := convertRequest{URL: ref.CanonicalURL(), Format: kind.FormatLabel(), Quality: quality}
	if err := c.doRequest(ctx, "/api/convert", payload, &conv); err != nil {
		return nil, err
	}

	if !conv.Success || conv.DownloadURL == "" {
		return nil, fmt.Errorf("conversion rejected: %s", conv.Error)
	}

	c.logger.Debug("conversion ready", "video", id, "format", kind.FormatLabel(), "quality", quality)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conv.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	return newStream(resp), nil
}
