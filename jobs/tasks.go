package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge deletes session rows whose expiry has passed.
	TaskSessionsPurge = "sessions:purge_expired"
)

// SessionsPurgePayload describes a purge request.
type SessionsPurgePayload struct {
	// Trigger records who asked for the purge (cron, manual).
	Trigger string `json:"trigger"`
}

// NewSessionsPurgeTask constructs an Asynq task. Purges are deduplicated for
// a minute so overlapping cron ticks and manual triggers collapse.
func NewSessionsPurgeTask(trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = "cron"
	}
	data, err := json.Marshal(SessionsPurgePayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(time.Minute),
	), nil
}
