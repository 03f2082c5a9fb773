package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain"
	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/adapter"
	"video-inspection-console/internal/domain/ports/repository"
	"video-inspection-console/internal/infra/logging"
	"video-inspection-console/internal/infra/metrics"
	"video-inspection-console/internal/infra/sched"
)

// Compile-time check
var _ UploadTrackerUseCase = (*uploadUC)(nil)

type UploadTrackerUseCase interface {
	// Start registers an upload and runs the transfer in the
	// background: register -> storage upload -> CompleteUpload. The
	// returned id can be cancelled at any point. content is closed once
	// the transfer settles.
	Start(ctx context.Context, fileName string, sizeBytes int64, content io.ReadCloser, meta adapter.UploadMeta) (string, error)
	// RegisterUpload creates an Uploading record at the head of the
	// bounded history and persists it.
	RegisterUpload(ctx context.Context, fileName string, sizeBytes int64) (string, error)
	// CompleteUpload settles the transfer outcome. A storage key moves
	// the record to Verifying and starts its verification timer; any
	// failure settles it without polling.
	CompleteUpload(ctx context.Context, uploadID string, res adapter.UploadResult, uploadErr error) error
	// CancelUpload aborts an in-flight transfer and stops the record's
	// verification timer, if any.
	CancelUpload(ctx context.Context, uploadID string) error
	// History returns the persisted history, newest-first.
	History() []model.UploadRecord
}

type uploadUC struct {
	storage  adapter.StorageAPI
	repo     repository.UploadHistoryRepository
	interval time.Duration
	maxItems int
	log      *zerolog.Logger
	appCtx   context.Context

	mu      sync.Mutex
	history []model.UploadRecord
	handles map[string]*sched.Handle
	cancels map[string]context.CancelFunc
}

// NewUploadTracker constructs the tracker and restores the persisted
// history. Restored Uploading/Verifying entries stay frozen at their
// last known status; verification is never auto-resumed.
func NewUploadTracker(appCtx context.Context, storage adapter.StorageAPI, repo repository.UploadHistoryRepository, verifyInterval time.Duration, maxItems int, logger *zerolog.Logger) *uploadUC {
	if verifyInterval <= 0 {
		verifyInterval = 5 * time.Second
	}
	if maxItems <= 0 {
		maxItems = 10
	}
	compLog := logger.With().Str("component", "UploadTracker").Logger()
	u := &uploadUC{
		storage:  storage,
		repo:     repo,
		interval: verifyInterval,
		maxItems: maxItems,
		log:      &compLog,
		appCtx:   appCtx,
		handles:  make(map[string]*sched.Handle),
		cancels:  make(map[string]context.CancelFunc),
	}
	history, err := repo.Load(appCtx)
	if err != nil {
		compLog.Warn().Err(err).Msg("could not restore upload history, starting empty")
	} else {
		u.history = history
		metrics.SetUploadHistorySize(len(history))
	}
	return u
}

func (u *uploadUC) Start(ctx context.Context, fileName string, sizeBytes int64, content io.ReadCloser, meta adapter.UploadMeta) (string, error) {
	defer logging.TraceDuration(u.log, "UploadTracker.Start")()
	id, err := u.RegisterUpload(ctx, fileName, sizeBytes)
	if err != nil {
		content.Close()
		return "", err
	}
	meta.FileName = fileName

	upCtx, cancel := context.WithCancel(u.appCtx)
	u.mu.Lock()
	u.cancels[id] = cancel
	u.mu.Unlock()

	go func() {
		defer cancel()
		defer content.Close()
		res, upErr := u.storage.Upload(upCtx, content, meta)
		if err := u.CompleteUpload(u.appCtx, id, res, upErr); err != nil {
			// Settled concurrently, e.g. cancelled mid-transfer.
			u.log.Debug().Err(err).Str("upload_id", id).Msg("upload outcome ignored")
		}
	}()
	return id, nil
}

func (u *uploadUC) RegisterUpload(ctx context.Context, fileName string, sizeBytes int64) (string, error) {
	if fileName == "" {
		return "", domain.ErrInvalidArgument
	}
	rec := model.UploadRecord{
		ID:        ulid.Make().String(),
		FileName:  fileName,
		SizeBytes: sizeBytes,
		Status:    model.UploadStatusUploading,
		CreatedAt: time.Now(),
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.history = model.PrependBounded(u.history, rec, u.maxItems)
	u.persistLocked(ctx)
	u.log.Info().Str("upload_id", rec.ID).Str("file", fileName).Int64("size", sizeBytes).Msg("upload registered")
	return rec.ID, nil
}

func (u *uploadUC) CompleteUpload(ctx context.Context, uploadID string, res adapter.UploadResult, uploadErr error) error {
	u.mu.Lock()
	rec := u.findLocked(uploadID)
	if rec == nil {
		// Evicted from the bounded history while the transfer ran.
		delete(u.cancels, uploadID)
		u.mu.Unlock()
		return domain.ErrUploadNotFound
	}
	if rec.Status != model.UploadStatusUploading {
		u.mu.Unlock()
		return domain.ErrUploadSettled
	}
	delete(u.cancels, uploadID)

	log := u.log.With().Str("upload_id", uploadID).Logger()
	switch {
	case errors.Is(uploadErr, context.Canceled):
		rec.Status = model.UploadStatusCancelled
		log.Info().Msg("upload cancelled mid-transfer")
	case uploadErr != nil:
		rec.Status = model.UploadStatusFailed
		log.Warn().Err(uploadErr).Msg("upload failed")
	case !res.Success || res.Key == "":
		rec.Status = model.UploadStatusFailed
		log.Warn().Str("reason", res.Error).Msg("upload rejected by storage")
	default:
		rec.StorageKey = res.Key
		rec.Status = model.UploadStatusVerifying
		tickLog := u.log.With().Str("upload_id", uploadID).Str("s3_key", res.Key).Logger()
		u.handles[uploadID] = sched.Run(u.appCtx, u.interval, u.verifyTick(uploadID, res.Key, &tickLog), &tickLog)
		log.Info().Str("s3_key", res.Key).Msg("upload stored, verification started")
	}
	u.persistLocked(ctx)
	u.mu.Unlock()
	return nil
}

// verifyTick builds the per-upload verification tick. The tick is
// tagged with the upload id and storage key it was issued for and
// discards itself when the record no longer matches.
func (u *uploadUC) verifyTick(uploadID, storageKey string, log *zerolog.Logger) sched.TickFunc {
	return func(ctx context.Context) bool {
		exists, err := u.storage.CheckExists(ctx, storageKey)

		u.mu.Lock()
		defer u.mu.Unlock()
		rec := u.findLocked(uploadID)
		if rec == nil || rec.Status != model.UploadStatusVerifying || rec.StorageKey != storageKey {
			delete(u.handles, uploadID)
			metrics.IncUploadVerification("discarded")
			return false
		}
		if err != nil {
			rec.Status = model.UploadStatusVerificationError
			delete(u.handles, uploadID)
			u.persistLocked(ctx)
			log.Warn().Err(err).Msg("verification check failed")
			metrics.IncUploadVerification("error")
			return false
		}
		if exists {
			rec.Status = model.UploadStatusVerified
			delete(u.handles, uploadID)
			u.persistLocked(ctx)
			log.Info().Msg("upload verified on storage")
			metrics.IncUploadVerification("verified")
			return false
		}
		metrics.IncUploadVerification("pending")
		return true
	}
}

func (u *uploadUC) CancelUpload(ctx context.Context, uploadID string) error {
	u.mu.Lock()
	rec := u.findLocked(uploadID)
	if rec == nil {
		u.mu.Unlock()
		return domain.ErrUploadNotFound
	}
	cancel := u.cancels[uploadID]
	delete(u.cancels, uploadID)
	h := u.handles[uploadID]
	delete(u.handles, uploadID)
	if !rec.Status.Settled() {
		rec.Status = model.UploadStatusCancelled
		u.persistLocked(ctx)
	}
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if h != nil {
		// Release, don't join: the tick may be stuck in a storage call,
		// and its effect is already suppressed by the status change.
		h.Release()
	}
	u.log.Info().Str("upload_id", uploadID).Msg("upload cancelled")
	return nil
}

func (u *uploadUC) History() []model.UploadRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]model.UploadRecord, len(u.history))
	copy(out, u.history)
	return out
}

// findLocked returns a pointer into u.history valid only while u.mu is
// held.
func (u *uploadUC) findLocked(uploadID string) *model.UploadRecord {
	for i := range u.history {
		if u.history[i].ID == uploadID {
			return &u.history[i]
		}
	}
	return nil
}

// persistLocked writes the full history through to the repository as
// part of the mutation's critical section. Caller holds u.mu.
func (u *uploadUC) persistLocked(ctx context.Context) {
	snapshot := make([]model.UploadRecord, len(u.history))
	copy(snapshot, u.history)
	if err := u.repo.Save(ctx, snapshot); err != nil {
		u.log.Error().Err(err).Msg("could not persist upload history")
	}
	metrics.SetUploadHistorySize(len(snapshot))
}
