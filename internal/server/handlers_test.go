package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opexdevelop/mediacache/internal/delivery"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/providers"
	"github.com/opexdevelop/mediacache/internal/queue"
	"github.com/opexdevelop/mediacache/internal/repositories"
	"github.com/opexdevelop/mediacache/internal/shared"
	internaltesting "github.com/opexdevelop/mediacache/internal/testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *internaltesting.MockProvider) {
	t.Helper()

	provider := &internaltesting.MockProvider{
		ProviderName: "mock-yt",
		Title:        "Handler Test Song",
		Payload:      "artifact",
		Filename:     "song.mp3",
	}
	objects := &internaltesting.MockObjectStore{Handle: "handle-9"}

	q := queue.New(0, shared.NewLogger(io.Discard))
	t.Cleanup(q.Close)

	engine := delivery.NewEngine(
		map[models.SourceKind]providers.Provider{models.SourceYouTube: provider},
		repositories.NewMemoryStore(),
		objects,
		q,
		shared.NewLogger(io.Discard),
	)

	router := NewBasicRouter()
	router.Use(Logging(shared.NewLogger(io.Discard)))
	router.Handler(NewAPIHandler(engine, shared.NewLogger(io.Discard)))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, provider
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, decoded
}

func TestAPIHandler_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAPIHandler_Resolve(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/resolve", `{"url": "https://youtu.be/dQw4w9WgXcQ"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["title"] != "Handler Test Song" {
		t.Errorf("title = %v", body["title"])
	}
	if body["source"] != "yt" || body["id"] != "dQw4w9WgXcQ" {
		t.Errorf("source/id = %v/%v", body["source"], body["id"])
	}
	if body["key"] != "yt:dQw4w9WgXcQ:mp3:128" {
		t.Errorf("key = %v, want audio default variant", body["key"])
	}
}

func TestAPIHandler_Deliver(t *testing.T) {
	srv, provider := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/deliver",
		`{"url": "dQw4w9WgXcQ", "kind": "audio", "quality": "128"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["handle"] != "handle-9" {
		t.Errorf("handle = %v", body["handle"])
	}
	if body["key"] != "yt:dQw4w9WgXcQ:mp3:128" {
		t.Errorf("key = %v", body["key"])
	}
	if body["cached"] != false {
		t.Errorf("cached = %v, want false", body["cached"])
	}

	t.Run("second request hits the cache", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL+"/api/deliver",
			`{"url": "dQw4w9WgXcQ", "kind": "audio", "quality": "128"}`)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if body["cached"] != true {
			t.Errorf("cached = %v, want true", body["cached"])
		}
		if _, downloads := provider.Calls(); downloads != 1 {
			t.Errorf("downloads = %d, want 1", downloads)
		}
	})
}

func TestAPIHandler_ReportFailure(t *testing.T) {
	srv, provider := newTestServer(t)

	// Seed the cache, then report the handle stale.
	postJSON(t, srv.URL+"/api/deliver", `{"url": "dQw4w9WgXcQ", "kind": "audio", "quality": "128"}`)

	resp, body := postJSON(t, srv.URL+"/api/deliveries/failure",
		`{"key": "yt:dQw4w9WgXcQ:mp3:128"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["cached"] != false {
		t.Errorf("cached = %v, want a fresh fetch", body["cached"])
	}
	if _, downloads := provider.Calls(); downloads != 2 {
		t.Errorf("downloads = %d, want 2", downloads)
	}
}

func TestAPIHandler_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{name: "invalid source", path: "/api/resolve", body: `{"url": "https://example.com/x"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid kind", path: "/api/deliver", body: `{"url": "dQw4w9WgXcQ", "kind": "mp3"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed JSON", path: "/api/deliver", body: `{not json`, wantStatus: http.StatusBadRequest},
		{name: "malformed cache key", path: "/api/deliveries/failure", body: `{"key": "nonsense"}`, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postJSON(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := NewBasicRouter()
	router.Use(RateLimit(1, 1))
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(router)
	defer srv.Close()

	first, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Errorf("first status = %d, want 200", first.StatusCode)
	}

	second, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.StatusCode)
	}
}
