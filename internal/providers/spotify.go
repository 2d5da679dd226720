// Spotify track implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
//
// A single-backend provider: track metadata comes from the Spotify Web API
// (client-credentials flow) and audio comes from the configured downloader
// host. Tracks are a fixed-quality audio artifact, so the quality argument
// is ignored and video requests are rejected.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL       = "https://accounts.spotify.com/api/token"
	defaultSpotifyAPIBase = "https://api.spotify.com/v1"
)

// SpotifyArtist represents an artist in Spotify track responses.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
}

// Spotify implements [Provider] for Spotify tracks.
type Spotify struct {
	apiBase       string
	downloaderURL string
	apiClient     *http.Client // oauth2-authenticated client for metadata
	dlClient      *http.Client
	logger        *log.Logger
}

// NewSpotify creates a Spotify track provider. The client-credentials token
// source authenticates metadata requests; downloads go to downloaderURL.
func NewSpotify(clientID, clientSecret, apiBase, downloaderURL string, logger *log.Logger) *Spotify {
	if apiBase == "" {
		apiBase = defaultSpotifyAPIBase
	}

	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return &Spotify{
		apiBase:       apiBase,
		downloaderURL: downloaderURL,
		apiClient:     creds.Client(context.Background()),
		dlClient:      http.DefaultClient,
		logger:        logger,
	}
}

// Name returns the provider name.
func (s *Spotify) Name() string {
	return "spotify"
}

// Track fetches track metadata by id.
func (s *Spotify) Track(ctx context.Context, id string) (*SpotifyTrack, error) {
	endpoint := fmt.Sprintf("%s/tracks/%s", s.apiBase, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	var track SpotifyTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &track, nil
}

// ResolveTitle returns "Artist - Title" for the track.
func (s *Spotify) ResolveTitle(ctx context.Context, id string) (string, error) {
	track, err := s.Track(ctx, id)
	if err != nil {
		return "", err
	}

	if len(track.Artists) > 0 {
		return fmt.Sprintf("%s - %s", track.Artists[0].Name, track.Name), nil
	}
	return track.Name, nil
}

// Download streams the track audio from the downloader host.
func (s *Spotify) Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*Stream, error) {
	if kind != models.KindAudio {
		return nil, fmt.Errorf("%w: spotify tracks are audio only", shared.ErrFormatNotFound)
	}

	endpoint := fmt.Sprintf("%s/download/%s", s.downloaderURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.dlClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	return newStream(resp), nil
}
