package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

// JobState describes the lifecycle of a remote transcription job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is the transcriber's answer to a status poll.
type JobStatus struct {
	JobID  string
	State  JobState
	Detail string
}

// StartRequest carries everything the transcriber needs to begin a job.
type StartRequest struct {
	UnitID      int64
	LectureID   int64
	PlaylistURL string
}

// Service is the client surface for the external transcription service.
type Service interface {
	// Available reports whether transcription jobs can be submitted.
	Available() bool
	// Start submits a transcription job and returns the remote job id.
	Start(ctx context.Context, req StartRequest) (string, error)
	// Status reports the state of the unit's current transcription job.
	Status(ctx context.Context, unitID int64) (JobStatus, error)
	// Cancel aborts the unit's transcription job, if one is running.
	Cancel(ctx context.Context, unitID int64) error
}

type httpService struct {
	baseURL string
	apiKey  string
	client  services.HTTPDoer
}

// NewConfiguredService returns a transcription client when the transcriber is
// configured and enabled, and an unavailable client otherwise.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.TranscriptionAvailable() {
		return unavailableService{}
	}
	timeout := time.Duration(cfg.Transcriber.TimeoutSeconds) * time.Second
	return &httpService{
		baseURL: strings.TrimRight(cfg.Transcriber.BaseURL, "/"),
		apiKey:  cfg.Transcriber.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewHTTPService constructs a transcription client against an explicit
// endpoint and HTTP doer. Used by tests.
func NewHTTPService(baseURL, apiKey string, client services.HTTPDoer) Service {
	return &httpService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

func (s *httpService) Available() bool {
	return s != nil && s.baseURL != "" && s.client != nil
}

func (s *httpService) Start(ctx context.Context, req StartRequest) (string, error) {
	if strings.TrimSpace(req.PlaylistURL) == "" {
		return "", services.Wrap(services.ErrValidation, "transcriber", "start", "playlist url is empty", nil)
	}

	body, err := json.Marshal(map[string]any{
		"unit_id":      req.UnitID,
		"lecture_id":   req.LectureID,
		"playlist_url": req.PlaylistURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal start request: %w", err)
	}

	endpoint := s.baseURL + "/api/v1/transcriptions"
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		s.decorate(httpReq)
		return httpReq, nil
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcriber", "start", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", services.Wrap(services.ErrExternalService, "transcriber", "start",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcriber", "start", "decode response", err)
	}
	if strings.TrimSpace(payload.JobID) == "" {
		return "", services.Wrap(services.ErrExternalService, "transcriber", "start", "response missing job id", nil)
	}
	return payload.JobID, nil
}

func (s *httpService) Status(ctx context.Context, unitID int64) (JobStatus, error) {
	endpoint := fmt.Sprintf("%s/api/v1/transcriptions/%d", s.baseURL, unitID)
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		s.decorate(req)
		return req, nil
	})
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrExternalService, "transcriber", "status", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return JobStatus{}, services.Wrap(services.ErrNotFound, "transcriber", "status",
			fmt.Sprintf("no transcription job for unit %d", unitID), nil)
	default:
		return JobStatus{}, services.Wrap(services.ErrExternalService, "transcriber", "status",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload struct {
		JobID  string `json:"job_id"`
		State  string `json:"state"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return JobStatus{}, services.Wrap(services.ErrExternalService, "transcriber", "status", "decode response", err)
	}

	state := JobState(strings.ToLower(strings.TrimSpace(payload.State)))
	switch state {
	case JobPending, JobCompleted, JobFailed:
	default:
		state = JobPending
	}
	return JobStatus{JobID: payload.JobID, State: state, Detail: payload.Detail}, nil
}

func (s *httpService) Cancel(ctx context.Context, unitID int64) error {
	endpoint := fmt.Sprintf("%s/api/v1/transcriptions/%d", s.baseURL, unitID)
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return nil, err
		}
		s.decorate(req)
		return req, nil
	})
	if err != nil {
		return services.Wrap(services.ErrExternalService, "transcriber", "cancel", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		// A missing job means nothing to cancel.
		return nil
	default:
		return services.Wrap(services.ErrExternalService, "transcriber", "cancel",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}

func (s *httpService) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

type unavailableService struct{}

func (unavailableService) Available() bool { return false }

func (unavailableService) Start(context.Context, StartRequest) (string, error) {
	return "", services.Wrap(services.ErrConfiguration, "transcriber", "start", "transcriber not configured", nil)
}

func (unavailableService) Status(context.Context, int64) (JobStatus, error) {
	return JobStatus{}, services.Wrap(services.ErrConfiguration, "transcriber", "status", "transcriber not configured", nil)
}

func (unavailableService) Cancel(context.Context, int64) error {
	return nil
}
