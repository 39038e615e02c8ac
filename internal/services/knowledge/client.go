package knowledge

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

// IngestionRequest carries unit content references for ingestion.
type IngestionRequest struct {
	UnitID         int64
	LectureID      int64
	Title          string
	AttachmentLink string
	TranscriptID   int64
}

// Service is the client surface for the knowledge base ingestion service.
type Service interface {
	// Available reports whether ingestion jobs can be submitted.
	Available() bool
	// StartIngestion submits unit content and returns the job token assigned
	// by the service. An empty token with nil error means the service
	// considered the unit not applicable for ingestion.
	StartIngestion(ctx context.Context, req IngestionRequest) (string, error)
	// CancelIngestion aborts the unit's ingestion job. It reports whether a
	// running job was actually cancelled.
	CancelIngestion(ctx context.Context, unitID int64) (bool, error)
	// DeleteUnits removes previously ingested content for the given units.
	DeleteUnits(ctx context.Context, unitIDs []int64) error
}

type httpService struct {
	baseURL string
	apiKey  string
	client  services.HTTPDoer
}

// NewConfiguredService returns an ingestion client when the knowledge base is
// configured and enabled, and an unavailable client otherwise.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.KnowledgeAvailable() {
		return unavailableService{}
	}
	timeout := time.Duration(cfg.Knowledge.TimeoutSeconds) * time.Second
	return &httpService{
		baseURL: strings.TrimRight(cfg.Knowledge.BaseURL, "/"),
		apiKey:  cfg.Knowledge.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewHTTPService constructs an ingestion client against an explicit endpoint
// and HTTP doer. Used by tests.
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

func (s *httpService) StartIngestion(ctx context.Context, req IngestionRequest) (string, error) {
	body, err := json.Marshal(map[string]any{
		"unit_id":         req.UnitID,
		"lecture_id":      req.LectureID,
		"title":           req.Title,
		"attachment_link": req.AttachmentLink,
		"transcript_id":   req.TranscriptID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ingestion request: %w", err)
	}

	endpoint := s.baseURL + "/api/v1/ingestions"
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		s.decorate(httpReq)
		return httpReq, nil
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "knowledge", "start ingestion", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
	case http.StatusNoContent:
		// Unit not applicable for ingestion.
		return "", nil
	default:
		return "", services.Wrap(services.ErrExternalService, "knowledge", "start ingestion",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload struct {
		JobToken string `json:"job_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrExternalService, "knowledge", "start ingestion", "decode response", err)
	}
	return strings.TrimSpace(payload.JobToken), nil
}

func (s *httpService) CancelIngestion(ctx context.Context, unitID int64) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/ingestions/%d", s.baseURL, unitID)
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return nil, err
		}
		s.decorate(req)
		return req, nil
	})
	if err != nil {
		return false, services.Wrap(services.ErrExternalService, "knowledge", "cancel ingestion", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, services.Wrap(services.ErrExternalService, "knowledge", "cancel ingestion",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}

func (s *httpService) DeleteUnits(ctx context.Context, unitIDs []int64) error {
	if len(unitIDs) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string]any{"unit_ids": unitIDs})
	if err != nil {
		return fmt.Errorf("marshal delete request: %w", err)
	}

	endpoint := s.baseURL + "/api/v1/units/delete"
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		s.decorate(req)
		return req, nil
	})
	if err != nil {
		return services.Wrap(services.ErrExternalService, "knowledge", "delete units", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return services.Wrap(services.ErrExternalService, "knowledge", "delete units",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
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

func (unavailableService) StartIngestion(context.Context, IngestionRequest) (string, error) {
	return "", services.Wrap(services.ErrConfiguration, "knowledge", "start ingestion", "knowledge base not configured", nil)
}

func (unavailableService) CancelIngestion(context.Context, int64) (bool, error) {
	return false, nil
}

func (unavailableService) DeleteUnits(context.Context, []int64) error {
	return nil
}
