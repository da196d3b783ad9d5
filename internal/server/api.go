package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
	"github.com/desertthunder/crossfade/internal/tasks"
)

const maxBodyBytes = 1 << 20

// Backend is the transfer service the API exposes. [tasks.Engine] implements it.
type Backend interface {
	Platforms() []services.Descriptor
	ListPlaylists(ctx context.Context, platform string, credentials services.Credentials) ([]models.Playlist, error)
	Submit(ctx context.Context, req tasks.TransferRequest) (string, error)
	Status(id string) (models.StatusReport, error)
	Job(id string) (models.TransferJob, error)
	Jobs() []models.StatusReport
	Cancel(id string) error
}

// PlaylistsRequest is the body of POST /api/playlists.
type PlaylistsRequest struct {
	Platform    string               `json:"platform"`
	Credentials services.Credentials `json:"credentials"`
}

// PlaylistSummary is one entry of the playlists response.
type PlaylistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
	Owner      string `json:"owner,omitempty"`
}

// PlaylistsResponse is the body returned by POST /api/playlists.
type PlaylistsResponse struct {
	Playlists []PlaylistSummary `json:"playlists"`
}

// SubmitResponse is the body returned by POST /api/transfer and DELETE /api/transfer/{id}.
type SubmitResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// APIHandler serves the JSON transfer API.
type APIHandler struct {
	backend Backend
	logger  *log.Logger
}

// NewAPIHandler creates an API handler over backend.
func NewAPIHandler(backend Backend, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &APIHandler{backend: backend, logger: logger}
}

// Register adds every API route to r.
func (h *APIHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(h.Health))
	r.Handle(http.MethodGet, "/api/platforms", http.HandlerFunc(h.Platforms))
	r.Handle(http.MethodPost, "/api/playlists", http.HandlerFunc(h.Playlists))
	r.Handle(http.MethodPost, "/api/transfer", http.HandlerFunc(h.Transfer))
	r.Handle(http.MethodDelete, "/api/transfer/{id}", http.HandlerFunc(h.Cancel))
	r.Handle(http.MethodGet, "/api/status/{id}", http.HandlerFunc(h.Status))
	r.Handle(http.MethodGet, "/api/jobs", http.HandlerFunc(h.Jobs))
	r.Handle(http.MethodGet, "/api/jobs/{id}", http.HandlerFunc(h.Job))
}

// NewRouter builds the full API router with request ids, logging, and panic recovery.
func NewRouter(backend Backend, logger *log.Logger) *ChiRouter {
	h := NewAPIHandler(backend, logger)

	r := NewChiRouter()
	r.Use(RequestID(), RequestLogger(h.logger), Recoverer())
	h.Register(r)
	return r
}

// Health reports liveness.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Platforms lists supported platforms and the credential fields each expects.
func (h *APIHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Platforms())
}

// Playlists authenticates with a platform and lists the account's playlists.
func (h *APIHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	var req PlaylistsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Platform) == "" {
		h.writeError(w, r, fmt.Errorf("%w: platform", shared.ErrMissingArgument))
		return
	}

	playlists, err := h.backend.ListPlaylists(r.Context(), req.Platform, req.Credentials)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := PlaylistsResponse{Playlists: make([]PlaylistSummary, len(playlists))}
	for i, p := range playlists {
		resp.Playlists[i] = PlaylistSummary{ID: p.ID, Name: p.Name, TrackCount: p.TrackCount, Owner: p.Owner}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transfer submits a transfer job and answers 202 with its id.
func (h *APIHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req tasks.TransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.backend.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: id, Status: models.StatusPending})
}

// Status returns the progress report of one job.
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.backend.Status(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Job returns one job including its per-track outcomes.
func (h *APIHandler) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.backend.Job(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Jobs lists reports for every job the server still holds.
func (h *APIHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Jobs())
}

// Cancel requests cancellation of a job.
func (h *APIHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.backend.Cancel(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: id, Status: models.StatusCancelled})
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	if errors.Is(err, shared.ErrJobFinalized) {
		return http.StatusConflict
	}

	switch shared.Kind(err) {
	case shared.KindAuth:
		return http.StatusUnauthorized
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindAPI:
		return http.StatusBadGateway
	case shared.KindInvalid:
		return http.StatusBadRequest
	case shared.KindUnavailable:
		return http.StatusServiceUnavailable
	case shared.KindCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	kind := shared.Kind(err)
	switch {
	case code == http.StatusConflict:
		kind = shared.KindInvalid
	case kind == shared.KindNoMatch:
		kind = shared.KindInternal
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error(), Kind: kind})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
