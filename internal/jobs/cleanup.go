package jobs

import (
	"context"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs/repository"
	"agency_os_backend/platform/config"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultCleanupInterval       = time.Hour
	defaultCompletedJobRetention = 14 * 24 * time.Hour
	defaultFailedJobRetention    = 30 * 24 * time.Hour

	msgStaleJob = "job interrupted before completion"
)

// Cleanup periodically removes old finished jobs and fails jobs left running
// by a process that exited mid-job. Every job it fails is announced with a
// JobFinished event so subjects waiting on it leave their in-progress state.
type Cleanup struct {
	repo               repository.Repository
	bus                events.Bus
	log                *logger.Logger
	interval           time.Duration
	completedRetention time.Duration
	failedRetention    time.Duration
	staleAfter         time.Duration
	now                func() time.Time
}

func NewCleanup(repo repository.Repository, bus events.Bus, cfg config.JobConfig, log *logger.Logger) *Cleanup {
	interval := cfg.GetJobCleanupInterval()
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	completedRetention := cfg.GetCompletedJobRetention()
	if completedRetention <= 0 {
		completedRetention = defaultCompletedJobRetention
	}
	failedRetention := cfg.GetFailedJobRetention()
	if failedRetention <= 0 {
		failedRetention = defaultFailedJobRetention
	}
	timeout := cfg.GetJobTimeout()
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	return &Cleanup{
		repo:               repo,
		bus:                bus,
		log:                log,
		interval:           interval,
		completedRetention: completedRetention,
		failedRetention:    failedRetention,
		staleAfter:         2 * timeout,
		now:                time.Now,
	}
}

func (c *Cleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleanup) cleanup(ctx context.Context) {
	now := c.now()

	failed, err := c.repo.FailStale(ctx, now.Add(-c.staleAfter), msgStaleJob)
	if err != nil {
		c.log.Warn("stale job sweep failed", "error", err)
	} else if len(failed) > 0 {
		c.log.Info("stale job sweep failed abandoned jobs", "failed", len(failed))
		c.announce(ctx, failed)
	}

	deleted, err := c.repo.DeleteFinishedBefore(ctx, now.Add(-c.completedRetention), now.Add(-c.failedRetention))
	if err != nil {
		c.log.Warn("job cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("job cleanup deleted finished jobs", "deleted", deleted)
	}
}

func (c *Cleanup) announce(ctx context.Context, failed []Job) {
	if c.bus == nil {
		return
	}
	for _, job := range failed {
		var actor uuid.UUID
		if job.CreatedBy != nil {
			actor = *job.CreatedBy
		}
		var duration time.Duration
		if job.StartedAt != nil && job.FinishedAt != nil {
			duration = job.FinishedAt.Sub(*job.StartedAt)
		}
		c.bus.Publish(ctx, events.JobFinished{
			BaseEvent: events.NewActorEvent(actor),
			JobID:     job.ID,
			Kind:      string(job.Kind),
			SubjectID: job.SubjectID,
			Status:    string(StatusFailed),
			Error:     msgStaleJob,
			Duration:  duration,
		})
	}
}
