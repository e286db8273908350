package poller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
)

// Update is one observation of a submitted job. Result is only meaningful
// when State is domain.JobCompleted, Reason only when domain.JobFailed.
type Update[T any] struct {
	State  domain.JobState
	Result T
	Reason string
}

// CreateFunc submits the job and returns its id. It is called exactly once
// per Run invocation.
type CreateFunc func(ctx context.Context) (string, error)

// PollFunc reads the current job status. It must be an idempotent read.
type PollFunc[T any] func(ctx context.Context, jobID string) (Update[T], error)

type Config struct {
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterCeiling time.Duration
	MaxAttempts   int
	// Deadline is the hard wall-clock ceiling for the whole poll loop,
	// independent of any deadline on the caller's context.
	Deadline time.Duration
}

// Backoff returns the sleep before poll attempt n:
// min(MaxDelay, BaseDelay*2^n) plus uniform jitter in [0, JitterCeiling),
// floored at one millisecond so a zero config can never busy-loop.
func Backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 0; i < attempt && delay < cfg.MaxDelay; i++ {
		delay *= 2
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.JitterCeiling > 0 {
		delay += time.Duration(rand.Int63n(int64(cfg.JitterCeiling)))
	}
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return delay
}

// Run drives one external asynchronous job to a terminal state. Transport
// errors from poll reads are retried inside the loop; everything else ends
// it: domain.ErrProviderFailure when the provider reports failure,
// domain.ErrTimeout when the attempt or deadline budget is spent, the
// context error when the caller cancels. Errors from create pass through
// untouched so submission rejections stay distinguishable.
func Run[T any](ctx context.Context, cfg Config, logger outbound.LoggerPort, create CreateFunc, poll PollFunc[T]) (T, error) {
	var zero T

	jobID, err := create(ctx)
	if err != nil {
		return zero, err
	}
	logger.DebugWithFields("Job submitted", map[string]interface{}{"job_id": jobID})

	var deadline time.Time
	if cfg.Deadline > 0 {
		deadline = time.Now().Add(cfg.Deadline)
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		delay := Backoff(cfg, attempt)
		if !deadline.IsZero() && time.Now().Add(delay).After(deadline) {
			return zero, fmt.Errorf("%w: job %s still pending after %s", domain.ErrTimeout, jobID, cfg.Deadline)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		update, err := poll(ctx, jobID)
		if err != nil {
			if errors.Is(err, domain.ErrTransport) {
				logger.WarnWithFields("Poll attempt failed, backing off", map[string]interface{}{
					"job_id":  jobID,
					"attempt": attempt,
					"error":   err.Error(),
				})
				continue
			}
			return zero, err
		}

		switch update.State {
		case domain.JobCompleted:
			return update.Result, nil
		case domain.JobFailed:
			return zero, fmt.Errorf("%w: %s", domain.ErrProviderFailure, update.Reason)
		}
	}

	return zero, fmt.Errorf("%w: job %s not terminal after %d attempts", domain.ErrTimeout, jobID, cfg.MaxAttempts)
}
