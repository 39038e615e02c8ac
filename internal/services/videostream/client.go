package videostream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

// Service resolves playlist links for lecture video sources.
type Service interface {
	// Available reports whether the video provider can be queried at all.
	Available() bool
	// PlaylistLink returns the playlist URL for a video source. The boolean
	// reports whether a playlist exists; a false return with nil error means
	// the provider answered but knows no playlist for the source.
	PlaylistLink(ctx context.Context, videoSource string) (string, bool, error)
}

type httpService struct {
	baseURL string
	apiKey  string
	client  services.HTTPDoer
}

// NewConfiguredService returns a playlist lookup client when the video
// provider is configured, and an unavailable client otherwise.
func NewConfiguredService(cfg *config.Config) Service {
	if cfg == nil || !cfg.VideoProviderAvailable() {
		return unavailableService{}
	}
	timeout := time.Duration(cfg.VideoProvider.TimeoutSeconds) * time.Second
	return &httpService{
		baseURL: strings.TrimRight(cfg.VideoProvider.BaseURL, "/"),
		apiKey:  cfg.VideoProvider.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewHTTPService constructs a playlist lookup client against an explicit
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

func (s *httpService) PlaylistLink(ctx context.Context, videoSource string) (string, bool, error) {
	videoSource = strings.TrimSpace(videoSource)
	if videoSource == "" {
		return "", false, services.Wrap(services.ErrValidation, "videostream", "playlist", "video source is empty", nil)
	}

	endpoint := fmt.Sprintf("%s/api/v1/playlist?source=%s", s.baseURL, url.QueryEscape(videoSource))
	resp, err := services.DoWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return "", false, services.Wrap(services.ErrExternalService, "videostream", "playlist", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, services.Wrap(services.ErrExternalService, "videostream", "playlist",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload struct {
		PlaylistURL string `json:"playlist_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, services.Wrap(services.ErrExternalService, "videostream", "playlist", "decode response", err)
	}
	link := strings.TrimSpace(payload.PlaylistURL)
	if link == "" {
		return "", false, nil
	}
	return link, true, nil
}

type unavailableService struct{}

func (unavailableService) Available() bool { return false }

func (unavailableService) PlaylistLink(context.Context, string) (string, bool, error) {
	return "", false, services.Wrap(services.ErrConfiguration, "videostream", "playlist", "video provider not configured", nil)
}
