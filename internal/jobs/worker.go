package jobs

import (
	"context"
	"fmt"

	"agency_os_backend/platform/config"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes run tasks from asynq and executes them through a Runner
// that has the same handlers registered as the API process.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner *Runner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner *Runner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newWorker(opt, cfg.GetAsynqQueueName(), cfg.GetAsynqConcurrency(), runner, log), nil
}

func newWorker(opt asynq.RedisConnOpt, queue string, concurrency int, runner *Runner, log *logger.Logger) *Worker {
	if queue == "" {
		queue = defaultQueue
	}
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskRunJob, w.handleRunJob)

	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("job worker stopped", "error", err)
	}
}

func (w *Worker) handleRunJob(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRunJobPayload(task)
	if err != nil {
		return fmt.Errorf("parse run job payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job id: %v: %w", err, asynq.SkipRetry)
	}

	return w.runner.Execute(ctx, jobID)
}
