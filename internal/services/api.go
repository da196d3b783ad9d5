// Client for the transfer API of a running crossfade server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

const defaultAPIBaseURL = "http://127.0.0.1:3000"

// APIService calls the JSON endpoints served by internal/server.
//
// Error responses are mapped back onto the shared sentinel errors through their "kind",
// so callers can use errors.Is the same way they would in-process.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API client for the server at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse is a buffered response from the server.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ErrorBody is the JSON error envelope returned by the server.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// SubmitResponse is the body of a 202 from POST /api/transfer.
type SubmitResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

type playlistsRequest struct {
	Platform    string      `json:"platform"`
	Credentials Credentials `json:"credentials"`
}

type playlistsResponse struct {
	Playlists []models.Playlist `json:"playlists"`
}

// do sends body, if any, as JSON and buffers the response.
func (a *APIService) do(ctx context.Context, method, path string, body any) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: request to %s failed: %v", shared.ErrServiceUnavailable, a.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: raw}, nil
}

// call performs a request and decodes a 2xx body into out, which may be nil.
func (a *APIService) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := a.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return resp.decode(out)
}

// Health checks that the server is up.
func (a *APIService) Health(ctx context.Context) error {
	var body map[string]string
	if err := a.call(ctx, http.MethodGet, "/health", nil, &body); err != nil {
		return err
	}
	if body["status"] != "ok" {
		return fmt.Errorf("%w: health status %q", shared.ErrServiceUnavailable, body["status"])
	}
	return nil
}

// Platforms lists the platforms the server supports.
func (a *APIService) Platforms(ctx context.Context) ([]Descriptor, error) {
	var ds []Descriptor
	if err := a.call(ctx, http.MethodGet, "/api/platforms", nil, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Playlists lists the playlists of one account through the server.
func (a *APIService) Playlists(ctx context.Context, platform string, creds Credentials) ([]models.Playlist, error) {
	var resp playlistsResponse
	err := a.call(ctx, http.MethodPost, "/api/playlists", playlistsRequest{Platform: platform, Credentials: creds}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Playlists, nil
}

// Submit posts a transfer request and returns the new job id.
//
// req is encoded as the POST /api/transfer body, normally a tasks.TransferRequest.
func (a *APIService) Submit(ctx context.Context, req any) (string, error) {
	var resp SubmitResponse
	if err := a.call(ctx, http.MethodPost, "/api/transfer", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%w: server returned no job id", shared.ErrAPIRequest)
	}
	return resp.JobID, nil
}

// Status fetches the progress report for a job.
func (a *APIService) Status(ctx context.Context, jobID string) (*models.StatusReport, error) {
	var report models.StatusReport
	if err := a.call(ctx, http.MethodGet, "/api/status/"+jobID, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Job fetches one job including its per-track outcomes.
func (a *APIService) Job(ctx context.Context, jobID string) (*models.TransferJob, error) {
	var job models.TransferJob
	if err := a.call(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Jobs lists the reports of every job the server still tracks.
func (a *APIService) Jobs(ctx context.Context) ([]models.StatusReport, error) {
	var reports []models.StatusReport
	if err := a.call(ctx, http.MethodGet, "/api/jobs", nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// Cancel asks the server to stop a job.
func (a *APIService) Cancel(ctx context.Context, jobID string) error {
	return a.call(ctx, http.MethodDelete, "/api/transfer/"+jobID, nil, nil)
}

// Err converts a non-2xx response into an error carrying the server's kind.
func (r *APIResponse) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}

	var body ErrorBody
	if err := json.Unmarshal(r.Body, &body); err != nil || body.Error == "" {
		return StatusError(r.StatusCode, strings.TrimSpace(string(r.Body)))
	}
	return fmt.Errorf("%w: %s", kindError(body.Kind, r.StatusCode), body.Error)
}

func (r *APIResponse) decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func kindError(kind string, code int) error {
	if code == http.StatusConflict {
		return shared.ErrJobFinalized
	}
	switch kind {
	case shared.KindAuth:
		return shared.ErrAuthFailed
	case shared.KindNotFound:
		return shared.ErrJobNotFound
	case shared.KindInvalid:
		return shared.ErrInvalidInput
	case shared.KindUnavailable:
		return shared.ErrServiceUnavailable
	case shared.KindAPI:
		return shared.ErrAPIRequest
	}
	return fmt.Errorf("server error (status %d)", code)
}
