package jobs

import (
	"context"
	"testing"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs/repository"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type jobConfigStub struct {
	timeout   time.Duration
	interval  time.Duration
	completed time.Duration
	failed    time.Duration
}

func (c jobConfigStub) GetJobTimeout() time.Duration            { return c.timeout }
func (c jobConfigStub) GetJobCleanupInterval() time.Duration    { return c.interval }
func (c jobConfigStub) GetCompletedJobRetention() time.Duration { return c.completed }
func (c jobConfigStub) GetFailedJobRetention() time.Duration    { return c.failed }

func TestCleanupUsesRetentionWindows(t *testing.T) {
	repo := newFakeRepo()
	c := NewCleanup(repo, nil, jobConfigStub{timeout: 5 * time.Minute}, logger.Discard())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())

	if want := now.Add(-10 * time.Minute); !repo.staleBefore.Equal(want) {
		t.Fatalf("stale cutoff = %v, want %v", repo.staleBefore, want)
	}
	if want := now.Add(-14 * 24 * time.Hour); !repo.completedBefore.Equal(want) {
		t.Fatalf("completed cutoff = %v, want %v", repo.completedBefore, want)
	}
	if want := now.Add(-30 * 24 * time.Hour); !repo.failedBefore.Equal(want) {
		t.Fatalf("failed cutoff = %v, want %v", repo.failedBefore, want)
	}
}

func TestCleanupRunStopsOnCancel(t *testing.T) {
	c := NewCleanup(newFakeRepo(), nil, jobConfigStub{interval: time.Millisecond}, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestCleanupFailsAbandonedJobsAndAnnouncesThem(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	c := NewCleanup(repo, bus, jobConfigStub{timeout: 5 * time.Minute}, logger.Discard())
	now := time.Now()
	c.now = func() time.Time { return now }

	owner := uuid.New()
	ctx := context.Background()

	running, err := repo.Create(ctx, repository.CreateParams{Kind: KindKeywordGrouping, SubjectID: uuid.New(), CreatedBy: &owner})
	require.NoError(t, err)
	_, ok, err := repo.Claim(ctx, running.ID)
	require.NoError(t, err)
	require.True(t, ok)

	queued, err := repo.Create(ctx, repository.CreateParams{Kind: KindMeetingExtraction, SubjectID: uuid.New()})
	require.NoError(t, err)

	fresh, err := repo.Create(ctx, repository.CreateParams{Kind: KindTopicGeneration, SubjectID: uuid.New()})
	require.NoError(t, err)

	hourAgo := now.Add(-time.Hour)
	repo.mu.Lock()
	repo.jobs[running.ID].StartedAt = &hourAgo
	repo.jobs[queued.ID].CreatedAt = hourAgo
	repo.mu.Unlock()

	c.cleanup(ctx)

	require.Equal(t, StatusFailed, repo.job(running.ID).Status)
	require.Equal(t, StatusFailed, repo.job(queued.ID).Status)
	require.Equal(t, StatusPending, repo.job(fresh.ID).Status)

	finished := bus.finished()
	require.Len(t, finished, 2)
	byJob := make(map[uuid.UUID]events.JobFinished, len(finished))
	for _, ev := range finished {
		require.Equal(t, string(StatusFailed), ev.Status)
		require.Equal(t, msgStaleJob, ev.Error)
		byJob[ev.JobID] = ev
	}

	require.Contains(t, byJob, running.ID)
	require.Equal(t, string(KindKeywordGrouping), byJob[running.ID].Kind)
	require.Equal(t, running.SubjectID, byJob[running.ID].SubjectID)
	require.Equal(t, owner, byJob[running.ID].ActorID)

	require.Contains(t, byJob, queued.ID)
	require.Equal(t, queued.SubjectID, byJob[queued.ID].SubjectID)
}

func TestCleanupWithoutAbandonedJobsPublishesNothing(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	c := NewCleanup(repo, bus, jobConfigStub{timeout: 5 * time.Minute}, logger.Discard())

	_, err := repo.Create(context.Background(), repository.CreateParams{Kind: KindCopyGeneration, SubjectID: uuid.New()})
	require.NoError(t, err)

	c.cleanup(context.Background())

	require.Empty(t, bus.finished())
}
