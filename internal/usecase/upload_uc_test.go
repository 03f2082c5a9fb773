//go:build !integration

package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"video-inspection-console/internal/domain"
	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/adapter"
)

const testVerifyInterval = 10 * time.Millisecond

func newUploadTracker(t *testing.T, storage *mockStorageAPI, repo *memHistoryRepo, maxItems int) *uploadUC {
	t.Helper()
	return NewUploadTracker(context.Background(), storage, repo, testVerifyInterval, maxItems, newTestLogger())
}

func findRecord(history []model.UploadRecord, id string) *model.UploadRecord {
	for i := range history {
		if history[i].ID == id {
			return &history[i]
		}
	}
	return nil
}

func TestUploadTracker_VerifyUntilExists(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorageAPI{}
	repo := &memHistoryRepo{}

	var mu sync.Mutex
	exists := false
	storage.CheckExistsFunc = func(ctx context.Context, key string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		was := exists
		exists = true // first tick sees false, second sees true
		return was, nil
	}

	uc := newUploadTracker(t, storage, repo, 10)
	id, err := uc.RegisterUpload(ctx, "a.mp4", 1024)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := uc.CompleteUpload(ctx, id, adapter.UploadResult{Success: true, Key: "key123"}, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if got := findRecord(uc.History(), id).Status; got != model.UploadStatusVerifying {
		t.Fatalf("expected verifying after complete, got %s", got)
	}

	waitFor(t, time.Second, func() bool {
		return findRecord(uc.History(), id).Status == model.UploadStatusVerified
	})

	// Timer must have stopped: no further existence checks.
	calls := storage.CheckCalls("key123")
	if calls != 2 {
		t.Errorf("expected exactly 2 existence checks, got %d", calls)
	}
	time.Sleep(5 * testVerifyInterval)
	if storage.CheckCalls("key123") != calls {
		t.Errorf("verification timer kept running after verified")
	}
}

func TestUploadTracker_VerificationErrorIsTerminal(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorageAPI{}
	repo := &memHistoryRepo{}
	storage.CheckExistsFunc = func(ctx context.Context, key string) (bool, error) {
		return false, errors.New("boom")
	}

	uc := newUploadTracker(t, storage, repo, 10)
	id, _ := uc.RegisterUpload(ctx, "a.mp4", 1)
	if err := uc.CompleteUpload(ctx, id, adapter.UploadResult{Success: true, Key: "k1"}, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return findRecord(uc.History(), id).Status == model.UploadStatusVerificationError
	})
	calls := storage.CheckCalls("k1")
	time.Sleep(5 * testVerifyInterval)
	if storage.CheckCalls("k1") != calls {
		t.Errorf("timer kept running after verification error")
	}
}

func TestUploadTracker_IndependentTimers(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorageAPI{}
	repo := &memHistoryRepo{}

	var mu sync.Mutex
	secondExists := false
	storage.CheckExistsFunc = func(ctx context.Context, key string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		switch key {
		case "k1":
			return false, errors.New("boom")
		default:
			return secondExists, nil
		}
	}

	uc := newUploadTracker(t, storage, repo, 10)
	id1, _ := uc.RegisterUpload(ctx, "one.mp4", 1)
	id2, _ := uc.RegisterUpload(ctx, "two.mp4", 2)
	if err := uc.CompleteUpload(ctx, id1, adapter.UploadResult{Success: true, Key: "k1"}, nil); err != nil {
		t.Fatalf("complete 1: %v", err)
	}
	if err := uc.CompleteUpload(ctx, id2, adapter.UploadResult{Success: true, Key: "k2"}, nil); err != nil {
		t.Fatalf("complete 2: %v", err)
	}

	// Upload 1 fails its verification...
	waitFor(t, time.Second, func() bool {
		return findRecord(uc.History(), id1).Status == model.UploadStatusVerificationError
	})
	// ...while upload 2 keeps polling unaffected.
	if got := findRecord(uc.History(), id2).Status; got != model.UploadStatusVerifying {
		t.Fatalf("upload 2 affected by upload 1 failure: %s", got)
	}
	before := storage.CheckCalls("k2")
	waitFor(t, time.Second, func() bool { return storage.CheckCalls("k2") > before })

	mu.Lock()
	secondExists = true
	mu.Unlock()
	waitFor(t, time.Second, func() bool {
		return findRecord(uc.History(), id2).Status == model.UploadStatusVerified
	})
}

func TestUploadTracker_HistoryCapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := &memHistoryRepo{}
	uc := newUploadTracker(t, &mockStorageAPI{}, repo, 3)

	var ids []string
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4"} {
		id, err := uc.RegisterUpload(ctx, name, 1)
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		ids = append(ids, id)
	}

	history := uc.History()
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	if history[0].FileName != "d.mp4" {
		t.Errorf("expected newest first, got %q", history[0].FileName)
	}
	if findRecord(history, ids[0]) != nil {
		t.Errorf("expected oldest record evicted")
	}
	if findRecord(history, ids[1]) == nil {
		t.Errorf("second-oldest record should survive")
	}
}

func TestUploadTracker_WriteThroughPersistence(t *testing.T) {
	ctx := context.Background()
	repo := &memHistoryRepo{}
	uc := newUploadTracker(t, &mockStorageAPI{}, repo, 10)

	id, _ := uc.RegisterUpload(ctx, "a.mp4", 1)
	saved := repo.Saved()
	if len(saved) != 1 || saved[0].Status != model.UploadStatusUploading {
		t.Fatalf("register not persisted: %+v", saved)
	}

	if err := uc.CompleteUpload(ctx, id, adapter.UploadResult{Success: false, Error: "disk full"}, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	saved = repo.Saved()
	if saved[0].Status != model.UploadStatusFailed {
		t.Fatalf("failure not persisted: %+v", saved[0])
	}
	// One save per mutation: register, then settle.
	if repo.Saves() != 2 {
		t.Errorf("expected 2 saves, got %d", repo.Saves())
	}
}

func TestUploadTracker_LoadFailureStartsEmpty(t *testing.T) {
	repo := &memHistoryRepo{loadErr: errors.New("redis down")}
	uc := newUploadTracker(t, &mockStorageAPI{}, repo, 10)

	if got := uc.History(); len(got) != 0 {
		t.Fatalf("expected empty history after load failure, got %v", got)
	}
	// The tracker stays usable.
	if _, err := uc.RegisterUpload(context.Background(), "a.mp4", 1); err != nil {
		t.Fatalf("register after load failure: %v", err)
	}
	if len(uc.History()) != 1 {
		t.Errorf("register did not apply after load failure")
	}
}

func TestUploadTracker_PersistFailureKeepsState(t *testing.T) {
	repo := &memHistoryRepo{saveErr: errors.New("disk full")}
	uc := newUploadTracker(t, &mockStorageAPI{}, repo, 10)

	// A failing store must not block tracking; the in-memory history is
	// authoritative for the session.
	id, err := uc.RegisterUpload(context.Background(), "a.mp4", 1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec := findRecord(uc.History(), id); rec == nil || rec.Status != model.UploadStatusUploading {
		t.Errorf("record missing after persist failure")
	}
	if repo.Saves() != 0 {
		t.Errorf("expected no successful saves, got %d", repo.Saves())
	}
}

func TestUploadTracker_StartAndCancelMidTransfer(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorageAPI{}
	repo := &memHistoryRepo{}

	started := make(chan struct{})
	storage.UploadFunc = func(ctx context.Context, content io.Reader, meta adapter.UploadMeta) (adapter.UploadResult, error) {
		close(started)
		<-ctx.Done()
		return adapter.UploadResult{}, ctx.Err()
	}

	uc := newUploadTracker(t, storage, repo, 10)
	id, err := uc.Start(ctx, "big.mp4", 1<<20, nopReadCloser{}, adapter.UploadMeta{UploadDate: "2026-09-01"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started

	if err := uc.CancelUpload(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return findRecord(uc.History(), id).Status == model.UploadStatusCancelled
	})

	// The settled cancellation must stick once the aborted transfer
	// reports back.
	time.Sleep(20 * time.Millisecond)
	if got := findRecord(uc.History(), id).Status; got != model.UploadStatusCancelled {
		t.Errorf("cancelled record re-settled to %s", got)
	}
}

func TestUploadTracker_CancelUnknownUpload(t *testing.T) {
	uc := newUploadTracker(t, &mockStorageAPI{}, &memHistoryRepo{}, 10)
	if err := uc.CancelUpload(context.Background(), "nope"); !errors.Is(err, domain.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}
}

func TestUploadTracker_RestoresFrozenHistory(t *testing.T) {
	repo := &memHistoryRepo{initial: []model.UploadRecord{
		{ID: "old1", FileName: "x.mp4", Status: model.UploadStatusVerifying, StorageKey: "kx"},
		{ID: "old2", FileName: "y.mp4", Status: model.UploadStatusVerified, StorageKey: "ky"},
	}}
	storage := &mockStorageAPI{}
	uc := newUploadTracker(t, storage, repo, 10)

	history := uc.History()
	if len(history) != 2 {
		t.Fatalf("expected restored history, got %d records", len(history))
	}
	// Stale Verifying entries stay frozen: no timer is resumed.
	time.Sleep(5 * testVerifyInterval)
	if storage.CheckCalls("kx") != 0 {
		t.Errorf("restored record must not resume verification")
	}
	if findRecord(uc.History(), "old1").Status != model.UploadStatusVerifying {
		t.Errorf("restored record mutated")
	}
}

func TestUploadTracker_UploadTransportFailure(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorageAPI{}
	repo := &memHistoryRepo{}
	storage.UploadFunc = func(ctx context.Context, content io.Reader, meta adapter.UploadMeta) (adapter.UploadResult, error) {
		return adapter.UploadResult{}, errors.New("network down")
	}

	uc := newUploadTracker(t, storage, repo, 10)
	id, err := uc.Start(ctx, "a.mp4", 1, nopReadCloser{}, adapter.UploadMeta{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return findRecord(uc.History(), id).Status == model.UploadStatusFailed
	})
	// Failed transfers never start verification.
	time.Sleep(5 * testVerifyInterval)
	if storage.CheckCalls("") != 0 {
		t.Errorf("verification started for a failed upload")
	}
}
