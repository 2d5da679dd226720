package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/delivery"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
)

// APIHandler exposes the delivery engine as a JSON API.
// Implements the Handler interface for registration with a Router.
type APIHandler struct {
	engine *delivery.Engine
	logger *log.Logger
}

// NewAPIHandler creates an APIHandler over the given engine.
func NewAPIHandler(engine *delivery.Engine, logger *log.Logger) *APIHandler {
	return &APIHandler{engine: engine, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"/healthz",
		"/api/resolve",
		"/api/deliver",
		"/api/deliveries/failure",
	}
}

// ServeHTTP dispatches to the endpoint handlers.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/healthz":
		h.health(w, r)
	case "/api/resolve":
		h.resolve(w, r)
	case "/api/deliver":
		h.deliver(w, r)
	case "/api/deliveries/failure":
		h.reportFailure(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resolveRequest struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Quality string `json:"quality"`
}

type resolveResponse struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

func (h *APIHandler) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	kind := models.KindAudio
	if req.Kind != "" {
		kind = models.MediaKind(req.Kind)
	}
	quality := req.Quality
	if quality == "" {
		quality = kind.DefaultQuality()
	}

	result, err := h.engine.Resolve(r.Context(), req.URL, kind, quality)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Source: string(result.Ref.Kind),
		ID:     result.Ref.ID,
		Key:    result.Key,
		URL:    result.URL,
		Title:  result.Title,
	})
}

type deliverRequest struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Quality string `json:"quality"`
}

type deliverResponse struct {
	Key      string `json:"key"`
	Handle   string `json:"handle"`
	Cached   bool   `json:"cached"`
	Filename string `json:"filename,omitempty"`
}

func (h *APIHandler) deliver(w http.ResponseWriter, r *http.Request) {
	var req deliverRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.engine.Deliver(r.Context(), req.URL, models.MediaKind(req.Kind), req.Quality, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deliverResponse{
		Key:      result.Key,
		Handle:   result.Handle,
		Cached:   result.Cached,
		Filename: result.Filename,
	})
}

type failureRequest struct {
	Key string `json:"key"`
}

// reportFailure evicts the stale handle and performs the one caller-driven
// re-fetch on the consumer's behalf, answering with the fresh handle.
func (h *APIHandler) reportFailure(w http.ResponseWriter, r *http.Request) {
	var req failureRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.engine.ReportDeliveryFailure(r.Context(), req.Key); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.engine.DeliverKey(r.Context(), req.Key, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deliverResponse{
		Key:      result.Key,
		Handle:   result.Handle,
		Cached:   result.Cached,
		Filename: result.Filename,
	})
}

func (h *APIHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// writeError maps domain sentinel errors onto HTTP status codes.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, shared.ErrInvalidSource), errors.Is(err, shared.ErrInvalidKind):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrNoFormats), errors.Is(err, shared.ErrFormatNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, shared.ErrBackendUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
