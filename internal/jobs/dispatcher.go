package jobs

import (
	"context"
	"fmt"

	"agency_os_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// inProcessDispatcher runs jobs on a goroutine with a context detached from
// the request, so the HTTP response returns as soon as the row exists.
type inProcessDispatcher struct {
	runner *Runner
}

func (d *inProcessDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	detached := context.WithoutCancel(ctx)
	d.runner.inflight.Add(1)
	go func() {
		defer d.runner.inflight.Done()
		if err := d.runner.Execute(detached, jobID); err != nil {
			d.runner.log.Error("in-process job execution failed", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

// AsynqDispatcher enqueues job ids on a Redis-backed asynq queue for the
// worker binary to execute.
type AsynqDispatcher struct {
	client *asynq.Client
	queue  string
}

var _ Dispatcher = (*AsynqDispatcher)(nil)

// NewAsynqDispatcher connects to the Redis instance named by cfg.
func NewAsynqDispatcher(cfg config.SchedulerConfig) (*AsynqDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newAsynqDispatcher(opt, cfg.GetAsynqQueueName()), nil
}

func newAsynqDispatcher(opt asynq.RedisConnOpt, queue string) *AsynqDispatcher {
	if queue == "" {
		queue = defaultQueue
	}
	return &AsynqDispatcher{client: asynq.NewClient(opt), queue: queue}
}

// Dispatch enqueues a run task for jobID.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	task, err := NewRunJobTask(RunJobPayload{JobID: jobID.String()})
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.MaxRetry(3))
	return err
}

// Close releases the Redis connection.
func (d *AsynqDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
