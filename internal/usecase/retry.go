package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const defaultMaxDelay = time.Minute

// RetryPolicy runs an operation up to MaxAttempts times. The wait after the
// k-th failure is BaseDelay * Multiplier^(k-1), capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// WithSleeper returns a copy of the policy that waits through fn instead of a timer.
func (p RetryPolicy) WithSleeper(fn func(ctx context.Context, d time.Duration) error) RetryPolicy {
	p.sleep = fn
	return p
}

// Attempts returns the effective attempt count (at least one).
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delays lists the waits between attempts for a run that never succeeds.
func (p RetryPolicy) Delays() []time.Duration {
	schedule := p.schedule()
	delays := make([]time.Duration, 0, p.Attempts()-1)
	for i := 1; i < p.Attempts(); i++ {
		delays = append(delays, schedule.NextBackOff())
	}
	return delays
}

// Do runs op until it succeeds, attempts run out or ctx is done.
// onFailure, when set, sees every failed attempt.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, onFailure func(attempt int, err error)) error {
	schedule := p.schedule()
	attempts := p.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == attempts {
			break
		}
		if err := p.wait(ctx, schedule.NextBackOff()); err != nil {
			return err
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// ExhaustedError reports that every attempt failed; Err is the last failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (p RetryPolicy) schedule() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = p.Multiplier
	if bo.Multiplier < 1 {
		bo.Multiplier = 1
	}
	bo.MaxInterval = p.MaxDelay
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = defaultMaxDelay
	}
	bo.Reset()
	return bo
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
