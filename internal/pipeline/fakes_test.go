package pipeline_test

import (
	"context"
	"sync"

	"lectern/internal/services/knowledge"
	"lectern/internal/services/transcriber"
)

type fakeVideo struct {
	mu        sync.Mutex
	available bool
	link      string
	found     bool
	err       error
	calls     int
}

func (f *fakeVideo) Available() bool { return f.available }

func (f *fakeVideo) PlaylistLink(_ context.Context, _ string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.link, f.found, f.err
}

type fakeTranscriber struct {
	mu        sync.Mutex
	available bool
	jobID     string
	startErr  error
	status    transcriber.JobStatus
	statusErr error
	started   []transcriber.StartRequest
	cancelled []int64
}

func (f *fakeTranscriber) Available() bool { return f.available }

func (f *fakeTranscriber) Start(_ context.Context, req transcriber.StartRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, req)
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.jobID, nil
}

func (f *fakeTranscriber) Status(context.Context, int64) (transcriber.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeTranscriber) Cancel(_ context.Context, unitID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, unitID)
	return nil
}

type fakeKnowledge struct {
	mu        sync.Mutex
	available bool
	token     string
	startErr  error
	requests  []knowledge.IngestionRequest
	cancelled []int64
	deleted   [][]int64
}

func (f *fakeKnowledge) Available() bool { return f.available }

func (f *fakeKnowledge) StartIngestion(_ context.Context, req knowledge.IngestionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.token, nil
}

func (f *fakeKnowledge) CancelIngestion(_ context.Context, unitID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, unitID)
	return true, nil
}

func (f *fakeKnowledge) DeleteUnits(_ context.Context, unitIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, unitIDs)
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	errors    int
}

func (f *fakeNotifier) NotifyProcessingCompleted(_ context.Context, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, title)
	return nil
}

func (f *fakeNotifier) NotifyProcessingFailed(_ context.Context, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, title)
	return nil
}

func (f *fakeNotifier) NotifyError(context.Context, error, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors++
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }
