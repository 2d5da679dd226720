// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/providers"
)

// MockProvider is a test double for [providers.Provider]. It counts
// invocations and returns canned results, or the configured errors.
type MockProvider struct {
	mu sync.Mutex

	ProviderName string
	Title        string
	TitleErr     error
	Payload      string
	Filename     string
	DownloadErr  error

	TitleCalls    int
	DownloadCalls int
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) ResolveTitle(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	m.TitleCalls++
	m.mu.Unlock()

	if m.TitleErr != nil {
		return "", m.TitleErr
	}
	return m.Title, nil
}

func (m *MockProvider) Download(ctx context.Context, id string, kind models.MediaKind, quality string) (*providers.Stream, error) {
	m.mu.Lock()
	m.DownloadCalls++
	m.mu.Unlock()

	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	return &providers.Stream{
		Body:     io.NopCloser(strings.NewReader(m.Payload)),
		Filename: m.Filename,
		Size:     int64(len(m.Payload)),
	}, nil
}

// Calls returns the invocation counts under the mutex.
func (m *MockProvider) Calls() (title, download int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TitleCalls, m.DownloadCalls
}

// MockObjectStore is a test double for [storage.ObjectStore]. It records
// each uploaded payload and returns Handle or Err.
type MockObjectStore struct {
	mu sync.Mutex

	Handle string
	Err    error

	Uploads   []string
	Filenames []string
}

func (m *MockObjectStore) Upload(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.Uploads = append(m.Uploads, string(payload))
	m.Filenames = append(m.Filenames, filename)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Handle, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
