package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/posts-project/posts/internal/jobs"
)

// SessionPurger deletes expired sessions and reports how many went away.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionPurgeJob handles TaskSessionsPurge.
type SessionPurgeJob struct {
	Sessions SessionPurger
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewSessionPurgeJob wires dependencies for the purge handler.
func NewSessionPurgeJob(sessions SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurgeJob {
	return &SessionPurgeJob{Sessions: sessions, Logger: logger, Metrics: metrics}
}

// Handle processes session purge tasks.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sessions == nil {
		return errors.New("session purge: handler not configured")
	}
	var payload SessionsPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskSessionsPurge)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("trigger", payload.Trigger))
	start := time.Now()
	purged, err := j.Sessions.PurgeExpired(ctx)
	if err != nil {
		logger.Error("purge expired sessions", slog.Any("error", err))
		return err
	}
	tracker.Processed(purged)
	logger.Info("purged expired sessions", slog.Int64("purged", purged), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *SessionPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
