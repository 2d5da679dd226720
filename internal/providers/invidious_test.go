package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
)

const watchPageTemplate = `<!DOCTYPE html>
<html>
<head><title>Test Song - Invidious</title></head>
<body>
<video><source src="/latest_version?id=%s&itag=18&local=true" type="video/mp4"></video>
<select>
<option value='{"itag": 140, "ext": "m4a"}'>audio only - m4a @ 128k</option>
<option value='{"itag": 251, "ext": "webm"}'>audio only - webm @ 64k</option>
<option value='{"itag": 22, "ext": "mp4"}'>mp4 - 720p</option>
<option value='not-json'>broken entry</option>
</select>
</body>
</html>`

func newWatchServer(t *testing.T, videoID, payload string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != videoID {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, watchPageTemplate, videoID)
	})
	mux.HandleFunc("/latest_version", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") == "" {
			http.Error(w, "missing referer", http.StatusForbidden)
			return
		}
		io.WriteString(w, payload)
	})

	return httptest.NewServer(mux)
}

func TestInvidious_Resolve(t *testing.T) {
	srv := newWatchServer(t, "dQw4w9WgXcQ", "media-bytes")
	defer srv.Close()

	v := NewInvidious(srv.URL, "", nil, srv.Client(), shared.NewLogger(io.Discard))

	info, err := v.Resolve(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if info.Title != "Test Song" {
		t.Errorf("title = %q, want Test Song", info.Title)
	}

	// Player template plus the three parseable options.
	if len(info.Candidates) != 4 {
		t.Fatalf("candidates = %d, want 4", len(info.Candidates))
	}

	var audio, video int
	for _, c := range info.Candidates {
		switch c.Kind {
		case models.KindAudio:
			audio++
		case models.KindVideo:
			video++
		}
	}
	if audio != 2 {
		t.Errorf("audio candidates = %d, want 2", audio)
	}
	if video != 2 {
		t.Errorf("video candidates = %d, want 2", video)
	}
}

func TestInvidious_Download(t *testing.T) {
	srv := newWatchServer(t, "dQw4w9WgXcQ", "media-bytes")
	defer srv.Close()

	v := NewInvidious(srv.URL, "", nil, srv.Client(), shared.NewLogger(io.Discard))

	t.Run("selects and streams the requested format", func(t *testing.T) {
		stream, err := v.Download(context.Background(), "dQw4w9WgXcQ", models.KindAudio, "128")
		if err != nil {
			t.Fatalf("Download returned error: %v", err)
		}
		defer stream.Close()

		body, _ := io.ReadAll(stream.Body)
		if string(body) != "media-bytes" {
			t.Errorf("payload = %q, want media-bytes", body)
		}
	})

	t.Run("unknown video yields ErrNoFormats", func(t *testing.T) {
		_, err := v.Download(context.Background(), "missingVid01", models.KindAudio, "128")
		if !errors.Is(err, shared.ErrNoFormats) {
			t.Fatalf("error = %v, want ErrNoFormats", err)
		}
	})
}

func TestInvidious_UnavailableVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>The video is not available</body></html>")
	}))
	defer srv.Close()

	v := NewInvidious(srv.URL, "", nil, srv.Client(), shared.NewLogger(io.Discard))

	_, err := v.Resolve(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, shared.ErrNoFormats) {
		t.Fatalf("error = %v, want ErrNoFormats", err)
	}
}

func TestExtractCandidates(t *testing.T) {
	html := fmt.Sprintf(watchPageTemplate, "dQw4w9WgXcQ")
	candidates := extractCandidates(html, "https://inv.example.com", "https://inv.example.com/watch?v=dQw4w9WgXcQ")

	if len(candidates) != 4 {
		t.Fatalf("candidates = %d, want 4", len(candidates))
	}

	t.Run("player template is the generic fallback", func(t *testing.T) {
		first := candidates[0]
		if first.Label != "Player Source" {
			t.Errorf("label = %q", first.Label)
		}
		if first.ResolutionP != 360 {
			t.Errorf("resolution = %d, want 360", first.ResolutionP)
		}
		if first.URL != "https://inv.example.com/latest_version?id=dQw4w9WgXcQ&itag=18&local=true" {
			t.Errorf("url = %q", first.URL)
		}
	})

	t.Run("option entries substitute their itag", func(t *testing.T) {
		var m4a *models.FormatCandidate
		for i := range candidates {
			if candidates[i].Container == "m4a" {
				m4a = &candidates[i]
			}
		}
		if m4a == nil {
			t.Fatal("no m4a candidate extracted")
		}
		if m4a.Kind != models.KindAudio {
			t.Errorf("kind = %q, want audio", m4a.Kind)
		}
		if m4a.BitrateKbps != 128 {
			t.Errorf("bitrate = %d, want 128", m4a.BitrateKbps)
		}
		if m4a.URL != "https://inv.example.com/latest_version?id=dQw4w9WgXcQ&itag=140&local=true" {
			t.Errorf("url = %q", m4a.URL)
		}
	})

	t.Run("resolution parsed from label", func(t *testing.T) {
		var hd *models.FormatCandidate
		for i := range candidates {
			if candidates[i].ResolutionP == 720 {
				hd = &candidates[i]
			}
		}
		if hd == nil {
			t.Fatal("no 720p candidate extracted")
		}
		if hd.Kind != models.KindVideo {
			t.Errorf("kind = %q, want video", hd.Kind)
		}
	})

	t.Run("page without player source yields nothing", func(t *testing.T) {
		if got := extractCandidates("<html></html>", "https://x", "https://x/watch"); got != nil {
			t.Errorf("candidates = %v, want nil", got)
		}
	})
}

func TestDiscoverInstances(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			["good.example.com", {"uri": "https://good.example.com", "type": "https", "monitor": {"uptime": 99.5}}],
			["flaky.example.com", {"uri": "https://flaky.example.com", "type": "https", "monitor": {"uptime": 50.0}}],
			["onion.example", {"uri": "http://onion.example", "type": "onion", "monitor": {"uptime": 99.9}}],
			["unmonitored.example.com", {"uri": "https://unmonitored.example.com", "type": "https"}],
			["primary.example.com", {"uri": "https://primary.example.com", "type": "https", "monitor": {"uptime": 99.9}}]
		]`)
	}))
	defer directory.Close()

	v := NewInvidious("https://primary.example.com", directory.URL, nil, directory.Client(), shared.NewLogger(io.Discard))

	instances := v.discoverInstances(context.Background())

	if len(instances) != 2 {
		t.Fatalf("instances = %v, want primary plus one mirror", instances)
	}
	if instances[0] != "https://primary.example.com" {
		t.Errorf("first instance = %q, want pinned primary", instances[0])
	}
	if instances[1] != "https://good.example.com" {
		t.Errorf("mirror = %q, want good.example.com", instances[1])
	}
}

func TestDiscoverInstances_DirectoryDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewInvidious("https://primary.example.com", srv.URL, nil, srv.Client(), shared.NewLogger(io.Discard))

	instances := v.discoverInstances(context.Background())
	if len(instances) != 1 || instances[0] != "https://primary.example.com" {
		t.Errorf("instances = %v, want primary only", instances)
	}
}
