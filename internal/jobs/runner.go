// Package jobs runs long AI tasks outside the request cycle.
//
// A job is a row in the jobs table plus a handler registered for its kind.
// Start inserts the row and hands the id to a Dispatcher; Execute claims the
// row (pending -> running) and runs the handler exactly once.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs/repository"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Job    = repository.Job
	Kind   = repository.Kind
	Status = repository.Status
)

const (
	KindKeywordGrouping   = repository.KindKeywordGrouping
	KindTopicGeneration   = repository.KindTopicGeneration
	KindCopyGeneration    = repository.KindCopyGeneration
	KindMeetingExtraction = repository.KindMeetingExtraction

	StatusPending   = repository.StatusPending
	StatusRunning   = repository.StatusRunning
	StatusCompleted = repository.StatusCompleted
	StatusFailed    = repository.StatusFailed
)

const defaultJobTimeout = 10 * time.Minute

// HandlerFunc performs the work of a claimed job. The returned result is
// stored on the row as a short JSON summary; it may be nil.
type HandlerFunc func(ctx context.Context, job Job) (json.RawMessage, error)

// Dispatcher hands a persisted job to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID uuid.UUID) error
}

// StartParams describes a job to create.
type StartParams struct {
	Kind      Kind
	SubjectID uuid.UUID
	CreatedBy uuid.UUID
	Payload   any
}

// Starter is the narrow interface domain services depend on.
type Starter interface {
	Start(ctx context.Context, params StartParams) (Job, error)
}

// Runner owns handler registration, dispatch and execution.
type Runner struct {
	repo       repository.Repository
	bus        events.Bus
	log        *logger.Logger
	timeout    time.Duration
	dispatcher Dispatcher

	mu       sync.RWMutex
	handlers map[Kind]HandlerFunc
	inflight sync.WaitGroup
}

var _ Starter = (*Runner)(nil)

// NewRunner creates a runner that executes jobs in-process until another
// dispatcher is installed with UseDispatcher.
func NewRunner(repo repository.Repository, bus events.Bus, log *logger.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	r := &Runner{
		repo:     repo,
		bus:      bus,
		log:      log,
		timeout:  timeout,
		handlers: make(map[Kind]HandlerFunc),
	}
	r.dispatcher = &inProcessDispatcher{runner: r}
	return r
}

// UseDispatcher replaces the default in-process dispatcher.
func (r *Runner) UseDispatcher(d Dispatcher) {
	if d != nil {
		r.dispatcher = d
	}
}

// Register binds a handler to a job kind. Registering a kind twice panics.
func (r *Runner) Register(kind Kind, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("jobs: handler for %q already registered", kind))
	}
	r.handlers[kind] = handler
}

func (r *Runner) handler(kind Kind) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Start inserts a pending job and dispatches it. A second active job for the
// same kind and subject returns a conflict.
func (r *Runner) Start(ctx context.Context, params StartParams) (Job, error) {
	if _, ok := r.handler(params.Kind); !ok {
		return Job{}, apperr.Internal(fmt.Sprintf("no handler registered for %s jobs", params.Kind))
	}

	var payload json.RawMessage
	if params.Payload != nil {
		data, err := json.Marshal(params.Payload)
		if err != nil {
			return Job{}, fmt.Errorf("marshal job payload: %w", err)
		}
		payload = data
	}

	var createdBy *uuid.UUID
	if params.CreatedBy != uuid.Nil {
		createdBy = &params.CreatedBy
	}

	job, err := r.repo.Create(ctx, repository.CreateParams{
		Kind:      params.Kind,
		SubjectID: params.SubjectID,
		Payload:   payload,
		CreatedBy: createdBy,
	})
	if err != nil {
		return Job{}, err
	}

	if err := r.dispatcher.Dispatch(ctx, job.ID); err != nil {
		msg := "dispatch failed: " + err.Error()
		if failErr := r.repo.Fail(context.WithoutCancel(ctx), job.ID, msg); failErr != nil {
			r.log.DatabaseError("fail undispatched job", failErr)
		}
		return Job{}, apperr.Wrap(apperr.KindUnavailable, "could not start background job", err)
	}

	r.log.JobEvent(job.ID.String(), string(job.Kind), string(job.Status), 0, nil)
	return job, nil
}

// Execute claims and runs one job. A job that is no longer pending is skipped
// without error. The returned error only reports infrastructure failures;
// handler errors are recorded on the row.
func (r *Runner) Execute(ctx context.Context, jobID uuid.UUID) error {
	job, claimed, err := r.repo.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		r.log.Debug("job already claimed or gone", "job_id", jobID)
		return nil
	}

	started := time.Now()
	persistCtx := context.WithoutCancel(ctx)

	handler, ok := r.handler(job.Kind)
	if !ok {
		runErr := fmt.Errorf("no handler registered for %s jobs", job.Kind)
		return r.finish(persistCtx, job, nil, runErr, started)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	runCtx = context.WithValue(runCtx, logger.JobIDKey, job.ID.String())

	result, runErr := safeRun(runCtx, handler, job)
	if runErr == nil && runCtx.Err() != nil {
		runErr = runCtx.Err()
	}
	return r.finish(persistCtx, job, result, runErr, started)
}

func (r *Runner) finish(ctx context.Context, job Job, result json.RawMessage, runErr error, started time.Time) error {
	status := StatusCompleted
	var errMsg string
	if runErr != nil {
		status = StatusFailed
		errMsg = failureMessage(runErr)
		if err := r.repo.Fail(ctx, job.ID, errMsg); err != nil {
			return err
		}
	} else if err := r.repo.Complete(ctx, job.ID, result); err != nil {
		return err
	}

	duration := time.Since(started)
	r.log.JobEvent(job.ID.String(), string(job.Kind), string(status), duration, runErr)

	if r.bus != nil {
		var actor uuid.UUID
		if job.CreatedBy != nil {
			actor = *job.CreatedBy
		}
		r.bus.Publish(ctx, events.JobFinished{
			BaseEvent: events.NewActorEvent(actor),
			JobID:     job.ID,
			Kind:      string(job.Kind),
			SubjectID: job.SubjectID,
			Status:    string(status),
			Error:     errMsg,
			Duration:  duration,
		})
	}
	return nil
}

// Wait blocks until every in-process job has finished.
func (r *Runner) Wait() {
	r.inflight.Wait()
}

// ErrPanicked marks a job whose handler panicked.
var ErrPanicked = errors.New("job panicked")

func safeRun(ctx context.Context, handler HandlerFunc, job Job) (result json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanicked, rec, debug.Stack())
		}
	}()
	return handler(ctx, job)
}

// failureMessage keeps stored errors short and never exposes stack traces.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrPanicked):
		return ErrPanicked.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "job timed out"
	}
	if domainErr, ok := apperr.As(err); ok {
		return domainErr.Message
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

// DecodePayload unmarshals the payload stored on a job.
func DecodePayload(job Job, v any) error {
	if len(job.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", job.Kind, err)
	}
	return nil
}

// EncodeResult marshals a handler result summary.
func EncodeResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode job result: %w", err)
	}
	return data, nil
}
