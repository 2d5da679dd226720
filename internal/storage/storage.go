// package storage uploads downloaded artifacts to durable object storage.
//
// The delivery cache never persists media bytes itself; it streams each
// artifact to a storage service once and records the opaque handle the
// service returns. Subsequent deliveries replay the handle.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/shared"
)

// ObjectStore persists an artifact stream and returns its delivery handle.
type ObjectStore interface {
	Upload(ctx context.Context, r io.Reader, filename, contentType string) (string, error)
}

// HTTPStore implements [ObjectStore] against an HTTP upload endpoint that
// accepts multipart form uploads and answers with a JSON handle.
type HTTPStore struct {
	uploadURL string
	token     string
	maxBytes  int64
	client    *http.Client
	logger    *log.Logger
}

// NewHTTPStore creates an HTTPStore. maxBytes of zero means unlimited.
func NewHTTPStore(uploadURL, token string, maxBytes int64, client *http.Client, logger *log.Logger) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPStore{
		uploadURL: uploadURL,
		token:     token,
		maxBytes:  maxBytes,
		client:    client,
		logger:    logger,
	}
}

// Upload streams r to the storage service as a multipart upload. The body
// is piped rather than buffered, so artifacts larger than memory upload
// fine; an artifact exceeding the configured size limit aborts the upload
// mid-stream with ErrFileTooLarge.
func (s *HTTPStore) Upload(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	if filename == "" {
		filename = "media"
	}
	filename = shared.SanitizeFilename(filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if s.maxBytes > 0 {
		r = &limitedReader{r: r, remaining: s.maxBytes}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", shared.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Media-Content-Type", contentType)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, shared.ErrFileTooLarge) {
			return "", fmt.Errorf("%w: artifact exceeds %d bytes: %w", shared.ErrUploadFailed, s.maxBytes, shared.ErrFileTooLarge)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", fmt.Errorf("%w: storage rejected artifact: %w", shared.ErrUploadFailed, shared.ErrFileTooLarge)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", shared.ErrUploadFailed, resp.StatusCode)
	}

	var result struct {
		Handle string `json:"handle"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", shared.ErrUploadFailed, err)
	}
	if result.Handle == "" {
		return "", fmt.Errorf("%w: storage returned no handle: %s", shared.ErrUploadFailed, result.Error)
	}

	s.logger.Debug("artifact uploaded", "filename", filename, "handle", result.Handle)
	return result.Handle, nil
}

// limitedReader fails with ErrFileTooLarge once more than remaining bytes
// have been read, aborting the surrounding upload. An artifact of exactly
// remaining bytes passes.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// At the limit the source must be exhausted; probe one byte to
		// tell an exactly-sized artifact apart from an oversized one.
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, shared.ErrFileTooLarge
		}
		if err != nil {
			return 0, err
		}
		return 0, nil
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
