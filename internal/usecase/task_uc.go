package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain"
	"video-inspection-console/internal/domain/model"
	"video-inspection-console/internal/domain/ports/adapter"
	"video-inspection-console/internal/infra/logging"
	"video-inspection-console/internal/infra/metrics"
	"video-inspection-console/internal/infra/sched"
)

// Compile-time check
var _ TaskTrackerUseCase = (*taskUC)(nil)

// TaskSnapshot is the read-only projection view surfaces render.
type TaskSnapshot struct {
	TaskID       string                  `json:"task_id,omitempty"`
	State        model.JobState          `json:"state"`
	Progress     int                     `json:"progress"`
	StatusText   string                  `json:"status_text"`
	Result       *model.ExtractionResult `json:"result,omitempty"`
	ErrorMessage string                  `json:"error,omitempty"`
}

type TaskTrackerUseCase interface {
	// Submit starts a new extraction job for a storage folder prefix.
	// It returns domain.ErrTaskInProgress while a job is submitting or
	// processing; transport and server failures are not returned but
	// surface through the Failure projection, as all user-visible task
	// errors do.
	Submit(ctx context.Context, folderPrefix string) error
	// Reset stops any active poll loop and returns the tracker to Idle.
	// Idempotent.
	Reset()
	// Snapshot returns the current projection.
	Snapshot() TaskSnapshot
}

type taskUC struct {
	api      adapter.InspectionAPI
	notifier adapter.Notifier
	interval time.Duration
	log      *zerolog.Logger

	// appCtx bounds poll goroutines to the application lifetime, not to
	// the request that triggered the submission.
	appCtx context.Context

	mu     sync.Mutex
	job    model.Job
	gen    uint64
	handle *sched.Handle
}

// NewTaskTracker constructs the single-job tracker. notifier may be a
// noop implementation.
func NewTaskTracker(appCtx context.Context, api adapter.InspectionAPI, notifier adapter.Notifier, pollInterval time.Duration, logger *zerolog.Logger) *taskUC {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	compLog := logger.With().Str("component", "TaskTracker").Logger()
	return &taskUC{
		api:      api,
		notifier: notifier,
		interval: pollInterval,
		log:      &compLog,
		appCtx:   appCtx,
		job:      model.Job{State: model.JobStateIdle},
	}
}

func (u *taskUC) Submit(ctx context.Context, folderPrefix string) error {
	defer logging.TraceDuration(u.log, "TaskTracker.Submit")()
	if strings.TrimSpace(folderPrefix) == "" {
		return fmt.Errorf("%w: empty folder prefix", domain.ErrInvalidArgument)
	}

	u.mu.Lock()
	if u.job.State.Active() {
		u.mu.Unlock()
		metrics.IncJobSubmission("rejected")
		return domain.ErrTaskInProgress
	}
	prev := u.handle
	u.handle = nil
	u.gen++
	gen := u.gen
	u.job = model.Job{State: model.JobStateSubmitting, SubmittedAt: time.Now()}
	u.mu.Unlock()

	// No timer survives into a new submission. prev is normally nil
	// here (terminal ticks release themselves), but reset-then-submit
	// must not double-fire. Release rather than join: a stale tick may
	// be stuck in a status call, and the generation bump already
	// suppresses whatever it would do.
	if prev != nil {
		prev.Release()
	}

	traceID := uuid.NewString()
	log := u.log.With().Str("trace_id", traceID).Str("folder", folderPrefix).Logger()
	log.Info().Msg("submitting extraction job")

	resp, err := u.api.SubmitExtraction(ctx, folderPrefix)

	u.mu.Lock()
	defer u.mu.Unlock()
	if gen != u.gen {
		// Reset while the submit call was in flight; the reply belongs
		// to a superseded job and is discarded.
		log.Debug().Msg("submit reply discarded after reset")
		return nil
	}

	switch {
	case err != nil:
		u.failLocked(err.Error(), &log)
		metrics.IncJobSubmission("transport_error")
	case !resp.Success:
		msg := resp.Error
		if msg == "" {
			msg = "failed to start task"
		}
		u.failLocked(msg, &log)
		metrics.IncJobSubmission("rejected_by_server")
	default:
		u.job.State = model.JobStateProcessing
		u.job.TaskID = resp.TaskID
		u.job.Progress = 0
		u.job.StatusText = ""
		pollLog := u.log.With().Str("trace_id", traceID).Str("task_id", resp.TaskID).Logger()
		u.handle = sched.Run(u.appCtx, u.interval, u.pollTick(gen, resp.TaskID, &pollLog), &pollLog)
		log.Info().Str("task_id", resp.TaskID).Msg("job accepted, polling started")
		metrics.IncJobSubmission("accepted")
	}
	return nil
}

// pollTick builds the tick function for one accepted job. Each tick is
// tagged with the generation and task id it was issued for; a tick
// whose tag no longer matches the tracker's current job mutates
// nothing and releases its loop.
func (u *taskUC) pollTick(gen uint64, taskID string, log *zerolog.Logger) sched.TickFunc {
	return func(ctx context.Context) bool {
		start := time.Now()
		resp, err := u.api.TaskStatus(ctx, taskID)
		metrics.ObserveStatusCall(time.Since(start), err == nil)

		u.mu.Lock()
		defer u.mu.Unlock()

		if gen != u.gen || u.job.TaskID != taskID || u.job.State.Terminal() {
			metrics.IncPollTick("discarded")
			return false
		}
		if err != nil {
			// A failed status call is terminal for this job; the user
			// resubmits.
			u.failLocked("status check failed", log)
			metrics.IncPollTick("transport_error")
			return false
		}

		// Terminal flags win over progress updates.
		switch resp.State {
		case "SUCCESS":
			u.job.State = model.JobStateSuccess
			u.job.Result = resp.Result
			u.job.Progress = 100
			log.Info().Msg("job finished")
			metrics.IncPollTick("success")
			u.notifyAsync(fmt.Sprintf("Extraction %s finished: %d detections", taskID, resultCount(resp.Result)))
			return false
		case "FAILURE", "REVOKED":
			u.failLocked(statusErrorMessage(resp), log)
			metrics.IncPollTick(strings.ToLower(resp.State))
			return false
		default:
			// PENDING, PROGRESS, PROCESSING and anything unknown count
			// as in-progress.
			u.job.Progress = resp.Progress
			if resp.StatusText != "" {
				u.job.StatusText = resp.StatusText
			} else {
				u.job.StatusText = "Processing..."
			}
			metrics.IncPollTick("progress")
			return true
		}
	}
}

func (u *taskUC) Reset() {
	u.mu.Lock()
	h := u.handle
	u.handle = nil
	u.gen++
	u.job = model.Job{State: model.JobStateIdle}
	u.mu.Unlock()

	// Release, don't join: a tick in flight may be stuck in a status
	// call that ignores cancellation, and its effect is already
	// suppressed by the generation bump. Reset must return regardless.
	if h != nil {
		h.Release()
	}
}

func (u *taskUC) Snapshot() TaskSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return TaskSnapshot{
		TaskID:       u.job.TaskID,
		State:        u.job.State,
		Progress:     u.job.Progress,
		StatusText:   u.job.StatusText,
		Result:       u.job.Result,
		ErrorMessage: u.job.ErrorMessage,
	}
}

// failLocked transitions to Failure. Caller holds u.mu.
func (u *taskUC) failLocked(msg string, log *zerolog.Logger) {
	u.job.State = model.JobStateFailure
	u.job.ErrorMessage = msg
	log.Warn().Str("reason", msg).Msg("job failed")
	u.notifyAsync("Extraction failed: " + msg)
}

// notifyAsync delivers the operator notification off the caller's
// goroutine so a slow bot API never delays a poll tick.
func (u *taskUC) notifyAsync(text string) {
	if u.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(u.appCtx, 10*time.Second)
		defer cancel()
		if err := u.notifier.Notify(ctx, text); err != nil {
			u.log.Warn().Err(err).Msg("operator notification failed")
		}
	}()
}

func statusErrorMessage(resp adapter.StatusResponse) string {
	if resp.StatusText != "" {
		return resp.StatusText
	}
	if s, ok := resp.Error.(string); ok && s != "" {
		return s
	}
	return "Task failed or was cancelled."
}

func resultCount(r *model.ExtractionResult) int {
	if r == nil {
		return 0
	}
	return r.Count
}
