package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRunJob = "jobs.run"

const defaultQueue = "default"

type RunJobPayload struct {
	JobID string `json:"jobId"`
}

func NewRunJobTask(payload RunJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRunJob, data), nil
}

func ParseRunJobPayload(task *asynq.Task) (RunJobPayload, error) {
	var payload RunJobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RunJobPayload{}, err
	}
	return payload, nil
}
