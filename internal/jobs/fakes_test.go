package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs/repository"
	"agency_os_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job

	staleBefore     time.Time
	completedBefore time.Time
	failedBefore    time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*Job)}
}

var _ repository.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.Kind == params.Kind && j.SubjectID == params.SubjectID && !j.Status.IsTerminal() {
			return Job{}, apperr.Conflict("job already active")
		}
	}
	now := time.Now()
	job := &Job{
		ID:        uuid.New(),
		Kind:      params.Kind,
		SubjectID: params.SubjectID,
		Status:    StatusPending,
		Payload:   params.Payload,
		CreatedBy: params.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.jobs[job.ID] = job
	return *job, nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return Job{}, apperr.NotFound("job not found")
	}
	return *j, nil
}

func (f *fakeRepo) ListBySubject(_ context.Context, subjectID uuid.UUID, _ int) ([]Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Job
	for _, j := range f.jobs {
		if j.SubjectID == subjectID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeRepo) LatestBySubject(_ context.Context, subjectID uuid.UUID, kind Kind) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *Job
	for _, j := range f.jobs {
		if j.SubjectID == subjectID && j.Kind == kind && (latest == nil || j.CreatedAt.After(latest.CreatedAt)) {
			copied := *j
			latest = &copied
		}
	}
	return latest, nil
}

func (f *fakeRepo) Claim(_ context.Context, id uuid.UUID) (Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.Status != StatusPending {
		return Job{}, false, nil
	}
	now := time.Now()
	j.Status = StatusRunning
	j.StartedAt = &now
	return *j, true, nil
}

func (f *fakeRepo) Complete(_ context.Context, id uuid.UUID, result json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobs[id]
	now := time.Now()
	j.Status = StatusCompleted
	j.Result = result
	j.FinishedAt = &now
	return nil
}

func (f *fakeRepo) Fail(_ context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobs[id]
	now := time.Now()
	j.Status = StatusFailed
	j.Error = &message
	j.FinishedAt = &now
	return nil
}

func (f *fakeRepo) FailStale(_ context.Context, cutoff time.Time, message string) ([]Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleBefore = cutoff
	now := time.Now()
	failed := make([]Job, 0)
	for _, j := range f.jobs {
		stale := (j.Status == StatusRunning && j.StartedAt != nil && j.StartedAt.Before(cutoff)) ||
			(j.Status == StatusPending && j.CreatedAt.Before(cutoff))
		if !stale {
			continue
		}
		msg := message
		j.Status = StatusFailed
		j.Error = &msg
		j.FinishedAt = &now
		failed = append(failed, *j)
	}
	return failed, nil
}

func (f *fakeRepo) DeleteFinishedBefore(_ context.Context, completedBefore, failedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completedBefore = completedBefore
	f.failedBefore = failedBefore
	return 0, nil
}

func (f *fakeRepo) job(id uuid.UUID) Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) finished() []events.JobFinished {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.JobFinished
	for _, e := range b.events {
		if jf, ok := e.(events.JobFinished); ok {
			out = append(out, jf)
		}
	}
	return out
}
