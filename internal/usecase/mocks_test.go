//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/adapter"
)

// mockInspectionAPI is a small in-memory backend used by unit tests.
type mockInspectionAPI struct {
	mu             sync.Mutex
	SubmitFunc     func(ctx context.Context, folderPrefix string) (adapter.SubmitResponse, error)
	TaskStatusFunc func(ctx context.Context, taskID string) (adapter.StatusResponse, error)
	submitCalls    int
	statusCalls    int
}

func (m *mockInspectionAPI) SubmitExtraction(ctx context.Context, folderPrefix string) (adapter.SubmitResponse, error) {
	m.mu.Lock()
	m.submitCalls++
	fn := m.SubmitFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, folderPrefix)
	}
	return adapter.SubmitResponse{Success: true, TaskID: "T1"}, nil
}

func (m *mockInspectionAPI) TaskStatus(ctx context.Context, taskID string) (adapter.StatusResponse, error) {
	m.mu.Lock()
	m.statusCalls++
	fn := m.TaskStatusFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, taskID)
	}
	return adapter.StatusResponse{State: "PROCESSING"}, nil
}

func (m *mockInspectionAPI) RetrieveFolders(ctx context.Context, c adapter.RetrieveCriteria) ([]adapter.VideoFolder, error) {
	return nil, nil
}

func (m *mockInspectionAPI) VideoURL(ctx context.Context, storageKey string) (string, error) {
	return "", nil
}

func (m *mockInspectionAPI) SubmitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls
}

func (m *mockInspectionAPI) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

// mockStorageAPI fakes the storage proxy.
type mockStorageAPI struct {
	mu              sync.Mutex
	UploadFunc      func(ctx context.Context, content io.Reader, meta adapter.UploadMeta) (adapter.UploadResult, error)
	CheckExistsFunc func(ctx context.Context, storageKey string) (bool, error)
	checkCalls      map[string]int
}

func (m *mockStorageAPI) Upload(ctx context.Context, content io.Reader, meta adapter.UploadMeta) (adapter.UploadResult, error) {
	m.mu.Lock()
	fn := m.UploadFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, content, meta)
	}
	return adapter.UploadResult{Success: true, Key: "key-" + meta.FileName}, nil
}

func (m *mockStorageAPI) CheckExists(ctx context.Context, storageKey string) (bool, error) {
	m.mu.Lock()
	if m.checkCalls == nil {
		m.checkCalls = make(map[string]int)
	}
	m.checkCalls[storageKey]++
	fn := m.CheckExistsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, storageKey)
	}
	return true, nil
}

func (m *mockStorageAPI) CheckCalls(storageKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkCalls[storageKey]
}

// mockNotifier records delivered texts.
type mockNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

// memHistoryRepo keeps saves in memory and counts them.
type memHistoryRepo struct {
	mu      sync.Mutex
	saved   []model.UploadRecord
	initial []model.UploadRecord
	saves   int
	saveErr error
	loadErr error
}

func (m *memHistoryRepo) Load(ctx context.Context) ([]model.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]model.UploadRecord, len(m.initial))
	copy(out, m.initial)
	return out, nil
}

func (m *memHistoryRepo) Save(ctx context.Context, history []model.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.saved = make([]model.UploadRecord, len(history))
	copy(m.saved, history)
	return nil
}

func (m *memHistoryRepo) Saved() []model.UploadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.UploadRecord, len(m.saved))
	copy(out, m.saved)
	return out
}

func (m *memHistoryRepo) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", d)
}

// nopReadCloser wraps a no-op body for Start calls.
type nopReadCloser struct{}

func (nopReadCloser) Read(p []byte) (int, error) { return 0, io.EOF }
func (nopReadCloser) Close() error               { return nil }
