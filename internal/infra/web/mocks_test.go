//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/adapter"
	"video-inspection-console/internal/usecase"
)

// stubTaskTracker records calls and serves a fixed projection.
type stubTaskTracker struct {
	mu         sync.Mutex
	SubmitFunc func(ctx context.Context, folderPrefix string) error
	snapshot   usecase.TaskSnapshot
	resets     int
	submitted  []string
}

func (s *stubTaskTracker) Submit(ctx context.Context, folderPrefix string) error {
	s.mu.Lock()
	s.submitted = append(s.submitted, folderPrefix)
	fn := s.SubmitFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, folderPrefix)
	}
	return nil
}

func (s *stubTaskTracker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *stubTaskTracker) Snapshot() usecase.TaskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// stubUploadTracker serves a fixed history and records starts/cancels.
type stubUploadTracker struct {
	mu         sync.Mutex
	StartFunc  func(ctx context.Context, fileName string, sizeBytes int64, content io.ReadCloser, meta adapter.UploadMeta) (string, error)
	CancelFunc func(ctx context.Context, uploadID string) error
	history    []model.UploadRecord
	lastMeta   adapter.UploadMeta
	cancelled  []string
}

func (s *stubUploadTracker) Start(ctx context.Context, fileName string, sizeBytes int64, content io.ReadCloser, meta adapter.UploadMeta) (string, error) {
	s.mu.Lock()
	s.lastMeta = meta
	fn := s.StartFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, fileName, sizeBytes, content, meta)
	}
	content.Close()
	return "UP1", nil
}

func (s *stubUploadTracker) RegisterUpload(ctx context.Context, fileName string, sizeBytes int64) (string, error) {
	return "UP1", nil
}

func (s *stubUploadTracker) CompleteUpload(ctx context.Context, uploadID string, res adapter.UploadResult, uploadErr error) error {
	return nil
}

func (s *stubUploadTracker) CancelUpload(ctx context.Context, uploadID string) error {
	s.mu.Lock()
	s.cancelled = append(s.cancelled, uploadID)
	fn := s.CancelFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, uploadID)
	}
	return nil
}

func (s *stubUploadTracker) History() []model.UploadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UploadRecord, len(s.history))
	copy(out, s.history)
	return out
}

func (s *stubUploadTracker) LastMeta() adapter.UploadMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMeta
}

// stubGateway fakes the backend client behind the web surface.
type stubGateway struct {
	LoginFunc        func(ctx context.Context, username, password string) (string, error)
	SystemStatusFunc func(ctx context.Context) (json.RawMessage, error)
	FoldersFunc      func(ctx context.Context, c adapter.RetrieveCriteria) ([]adapter.VideoFolder, error)
	VideoURLFunc     func(ctx context.Context, storageKey string) (string, error)
}

func (g *stubGateway) Login(ctx context.Context, username, password string) (string, error) {
	if g.LoginFunc != nil {
		return g.LoginFunc(ctx, username, password)
	}
	return "user", nil
}

func (g *stubGateway) SystemStatus(ctx context.Context) (json.RawMessage, error) {
	if g.SystemStatusFunc != nil {
		return g.SystemStatusFunc(ctx)
	}
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (g *stubGateway) RetrieveFolders(ctx context.Context, c adapter.RetrieveCriteria) ([]adapter.VideoFolder, error) {
	if g.FoldersFunc != nil {
		return g.FoldersFunc(ctx, c)
	}
	return nil, nil
}

func (g *stubGateway) VideoURL(ctx context.Context, storageKey string) (string, error) {
	if g.VideoURLFunc != nil {
		return g.VideoURLFunc(ctx, storageKey)
	}
	return "https://example.com/v.mp4", nil
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestAuth() *AuthManager {
	return NewAuthManager("test-secret", false, 30*time.Minute)
}
