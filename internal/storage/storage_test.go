package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opexdevelop/mediacache/internal/shared"
)

func newUploadServer(t *testing.T, handle string) (*httptest.Server, *struct {
	Filename string
	Payload  string
	Auth     string
}) {
	t.Helper()

	captured := &struct {
		Filename string
		Payload  string
		Auth     string
	}{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Auth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		payload, _ := io.ReadAll(file)
		captured.Filename = header.Filename
		captured.Payload = string(payload)

		json.NewEncoder(w).Encode(map[string]string{"handle": handle})
	}))

	return srv, captured
}

func TestHTTPStore_Upload(t *testing.T) {
	srv, captured := newUploadServer(t, "stored-123")
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "secret-token", 0, srv.Client(), shared.NewLogger(io.Discard))

	handle, err := store.Upload(context.Background(), strings.NewReader("artifact-bytes"), "song.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if handle != "stored-123" {
		t.Errorf("handle = %q, want stored-123", handle)
	}
	if captured.Filename != "song.mp3" {
		t.Errorf("filename = %q, want song.mp3", captured.Filename)
	}
	if captured.Payload != "artifact-bytes" {
		t.Errorf("payload = %q", captured.Payload)
	}
	if captured.Auth != "Bearer secret-token" {
		t.Errorf("auth header = %q", captured.Auth)
	}
}

func TestHTTPStore_SanitizesFilename(t *testing.T) {
	srv, captured := newUploadServer(t, "h")
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "", 0, srv.Client(), shared.NewLogger(io.Discard))

	if _, err := store.Upload(context.Background(), strings.NewReader("x"), `bad/name:with"quotes`, ""); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if strings.ContainsAny(captured.Filename, `/:"`) {
		t.Errorf("filename not sanitized: %q", captured.Filename)
	}
}

func TestHTTPStore_SizeLimit(t *testing.T) {
	srv, _ := newUploadServer(t, "h")
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "", 10, srv.Client(), shared.NewLogger(io.Discard))

	_, err := store.Upload(context.Background(), strings.NewReader("way more than ten bytes of artifact"), "big.mp4", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, shared.ErrUploadFailed) {
		t.Errorf("error = %v, want ErrUploadFailed", err)
	}
	if !errors.Is(err, shared.ErrFileTooLarge) {
		t.Errorf("error = %v, want ErrFileTooLarge", err)
	}
}

func TestHTTPStore_WithinSizeLimit(t *testing.T) {
	srv, captured := newUploadServer(t, "h")
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "", 100, srv.Client(), shared.NewLogger(io.Discard))

	if _, err := store.Upload(context.Background(), strings.NewReader("small"), "ok.mp3", ""); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if captured.Payload != "small" {
		t.Errorf("payload = %q, want small", captured.Payload)
	}
}

func TestHTTPStore_ExactlyAtSizeLimit(t *testing.T) {
	srv, captured := newUploadServer(t, "h")
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "", 10, srv.Client(), shared.NewLogger(io.Discard))

	if _, err := store.Upload(context.Background(), strings.NewReader("exactly10b"), "edge.mp3", ""); err != nil {
		t.Fatalf("artifact at the limit rejected: %v", err)
	}
	if captured.Payload != "exactly10b" {
		t.Errorf("payload = %q, want exactly10b", captured.Payload)
	}

	t.Run("one byte over fails", func(t *testing.T) {
		_, err := store.Upload(context.Background(), strings.NewReader("exactly10b!"), "over.mp3", "")
		if !errors.Is(err, shared.ErrFileTooLarge) {
			t.Errorf("error = %v, want ErrFileTooLarge", err)
		}
	})
}

func TestHTTPStore_ServerErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLarge bool
	}{
		{name: "internal error", status: http.StatusInternalServerError, body: "boom"},
		{name: "payload too large", status: http.StatusRequestEntityTooLarge, body: "too big", wantLarge: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				http.Error(w, tt.body, tt.status)
			}))
			defer srv.Close()

			store := NewHTTPStore(srv.URL, "", 0, srv.Client(), shared.NewLogger(io.Discard))

			_, err := store.Upload(context.Background(), strings.NewReader("x"), "f.mp3", "")
			if !errors.Is(err, shared.ErrUploadFailed) {
				t.Errorf("error = %v, want ErrUploadFailed", err)
			}
			if tt.wantLarge && !errors.Is(err, shared.ErrFileTooLarge) {
				t.Errorf("error = %v, want ErrFileTooLarge", err)
			}
		})
	}
}

func TestHTTPStore_MissingHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		json.NewEncoder(w).Encode(map[string]string{"error": "quota exceeded"})
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "", 0, srv.Client(), shared.NewLogger(io.Discard))

	_, err := store.Upload(context.Background(), strings.NewReader("x"), "f.mp3", "")
	if !errors.Is(err, shared.ErrUploadFailed) {
		t.Errorf("error = %v, want ErrUploadFailed", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error %q missing upstream message", err)
	}
}
