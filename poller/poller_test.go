package poller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"generate-video-pipeline/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string)                                     {}
func (nopLogger) InfoWithFields(string, map[string]interface{})   {}
func (nopLogger) Error(error, string)                             {}
func (nopLogger) ErrorWithFields(error, string, map[string]interface{}) {
}
func (nopLogger) Debug(string)                                   {}
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}

func fastConfig() Config {
	return Config{
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		MaxAttempts: 10,
	}
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	cfg := Config{
		BaseDelay: 2 * time.Second,
		MaxDelay:  30 * time.Second,
	}

	expected := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		30 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for attempt, want := range expected {
		if got := Backoff(cfg, attempt); got != want {
			t.Fatalf("attempt %d: got %v, want %v", attempt, got, want)
		}
	}
}

func TestBackoffJitterStaysWithinCeiling(t *testing.T) {
	cfg := Config{
		BaseDelay:     2 * time.Second,
		MaxDelay:      30 * time.Second,
		JitterCeiling: time.Second,
	}

	for attempt := 0; attempt < 8; attempt++ {
		base := Backoff(Config{BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay}, attempt)
		for i := 0; i < 50; i++ {
			got := Backoff(cfg, attempt)
			if got < base || got >= base+cfg.JitterCeiling {
				t.Fatalf("attempt %d: %v outside [%v, %v)", attempt, got, base, base+cfg.JitterCeiling)
			}
		}
	}
}

func TestBackoffFloorsAtOneMillisecond(t *testing.T) {
	if got := Backoff(Config{}, 0); got != time.Millisecond {
		t.Fatalf("got %v, want 1ms floor", got)
	}
}

func TestRunReturnsResultAndSubmitsOnce(t *testing.T) {
	creates := 0
	polls := 0

	create := func(ctx context.Context) (string, error) {
		creates++
		return "job-1", nil
	}
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		if jobID != "job-1" {
			t.Fatalf("poll got job id %q", jobID)
		}
		polls++
		if polls < 3 {
			return Update[string]{State: domain.JobProcessing}, nil
		}
		return Update[string]{State: domain.JobCompleted, Result: "https://assets.local/out.png"}, nil
	}

	result, err := Run(context.Background(), fastConfig(), nopLogger{}, create, poll)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if result != "https://assets.local/out.png" {
		t.Fatalf("got result %q", result)
	}
	if creates != 1 {
		t.Fatalf("create called %d times", creates)
	}
	if polls != 3 {
		t.Fatalf("poll called %d times", polls)
	}
}

func TestRunProviderFailure(t *testing.T) {
	create := func(ctx context.Context) (string, error) { return "job-1", nil }
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		return Update[string]{State: domain.JobFailed, Reason: "nsfw filter"}, nil
	}

	_, err := Run(context.Background(), fastConfig(), nopLogger{}, create, poll)
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("got %v, want ErrProviderFailure", err)
	}
}

func TestRunRetriesTransportErrors(t *testing.T) {
	polls := 0
	create := func(ctx context.Context) (string, error) { return "job-1", nil }
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		polls++
		if polls < 3 {
			return Update[string]{}, fmt.Errorf("%w: connection reset", domain.ErrTransport)
		}
		return Update[string]{State: domain.JobCompleted, Result: "done"}, nil
	}

	result, err := Run(context.Background(), fastConfig(), nopLogger{}, create, poll)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if result != "done" {
		t.Fatalf("got result %q", result)
	}
}

func TestRunStopsOnNonTransportPollError(t *testing.T) {
	fatal := errors.New("malformed status payload")
	create := func(ctx context.Context) (string, error) { return "job-1", nil }
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		return Update[string]{}, fatal
	}

	_, err := Run(context.Background(), fastConfig(), nopLogger{}, create, poll)
	if !errors.Is(err, fatal) {
		t.Fatalf("got %v, want the poll error back", err)
	}
}

func TestRunTimesOutAfterMaxAttempts(t *testing.T) {
	polls := 0
	create := func(ctx context.Context) (string, error) { return "job-1", nil }
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		polls++
		return Update[string]{State: domain.JobQueued}, nil
	}

	cfg := fastConfig()
	cfg.MaxAttempts = 4

	_, err := Run(context.Background(), cfg, nopLogger{}, create, poll)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if polls != 4 {
		t.Fatalf("poll called %d times, want 4", polls)
	}
}

func TestRunTimesOutAtDeadline(t *testing.T) {
	create := func(ctx context.Context) (string, error) { return "job-1", nil }
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		return Update[string]{State: domain.JobQueued}, nil
	}

	cfg := Config{
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		MaxAttempts: 1000,
		Deadline:    20 * time.Millisecond,
	}

	start := time.Now()
	_, err := Run(context.Background(), cfg, nopLogger{}, create, poll)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("deadline not honored, took %v", elapsed)
	}
}

func TestRunReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	create := func(ctx context.Context) (string, error) {
		cancel()
		return "job-1", nil
	}
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		t.Fatal("poll must not run after cancellation")
		return Update[string]{}, nil
	}

	cfg := fastConfig()
	cfg.BaseDelay = time.Minute
	cfg.MaxDelay = time.Minute

	_, err := Run(ctx, cfg, nopLogger{}, create, poll)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestRunPassesCreateErrorThrough(t *testing.T) {
	rejected := fmt.Errorf("%w: bad prompt", domain.ErrSubmissionRejected)
	create := func(ctx context.Context) (string, error) { return "", rejected }
	poll := func(ctx context.Context, jobID string) (Update[string], error) {
		t.Fatal("poll must not run when create fails")
		return Update[string]{}, nil
	}

	_, err := Run(context.Background(), fastConfig(), nopLogger{}, create, poll)
	if !errors.Is(err, domain.ErrSubmissionRejected) {
		t.Fatalf("got %v, want ErrSubmissionRejected", err)
	}
}
