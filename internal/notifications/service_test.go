package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lectern/internal/config"
	"lectern/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyProcessingCompleted(context.Background(), "Example"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "processing completed",
			send: func(svc notifications.Service) error {
				return svc.NotifyProcessingCompleted(context.Background(), "Graph Theory 101")
			},
			expectTitle:    "Lectern - Complete",
			expectMessage:  "Processing complete: Graph Theory 101",
			expectTags:     "lectern,processing,completed",
			expectPriority: "high",
		},
		{
			name: "processing failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyProcessingFailed(context.Background(), "Graph Theory 101", "transcription failed")
			},
			expectTitle:    "Lectern - Failed",
			expectMessage:  "Processing failed: Graph Theory 101\ntranscription failed",
			expectTags:     "lectern,processing,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("boom"), "ingestion")
			},
			expectTitle:    "Lectern - Error",
			expectMessage:  "Error with ingestion: boom",
			expectTags:     "lectern,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			send: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Lectern - Test",
			expectMessage:  "Notification system test",
			expectTags:     "lectern,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var (
				gotTitle    string
				gotMessage  string
				gotTags     string
				gotPriority string
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotMessage = string(body)
				gotTitle = r.Header.Get("Title")
				gotTags = r.Header.Get("Tags")
				gotPriority = r.Header.Get("Priority")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.Completions = true
			cfg.Notifications.Errors = true
			svc := notifications.NewService(&cfg)

			if err := tc.send(svc); err != nil {
				t.Fatalf("notification failed: %v", err)
			}
			if gotTitle != tc.expectTitle {
				t.Fatalf("title = %q, want %q", gotTitle, tc.expectTitle)
			}
			if gotMessage != tc.expectMessage {
				t.Fatalf("message = %q, want %q", gotMessage, tc.expectMessage)
			}
			if gotTags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", gotTags, tc.expectTags)
			}
			if gotPriority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", gotPriority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceSuppressesDisabledCategories(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completions = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyProcessingCompleted(context.Background(), "Quiet"); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := svc.NotifyProcessingFailed(context.Background(), "Quiet", "nope"); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "test"); err != nil {
		t.Fatalf("error: %v", err)
	}
	if requests != 0 {
		t.Fatalf("expected no requests, got %d", requests)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic missing", http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from 4xx response")
	}
}
