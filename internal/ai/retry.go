package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// Exponential doubles the base delay after each attempt.
	Exponential Backoff = iota
	// Linear waits base*attempt.
	Linear
)

// RetryPolicy describes how a call is retried. The zero value runs once.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps computed delays; 0 means no cap. A server Retry-After is never capped.
	MaxDelay time.Duration
	Backoff  Backoff
	// Jitter applies +/- 20% to computed delays.
	Jitter bool
	// Retryable decides whether an error qualifies for another attempt.
	// nil means RetryTransient.
	Retryable func(error) bool

	sleep func(context.Context, time.Duration) error
}

// NoRetry runs the call exactly once.
func NoRetry() RetryPolicy { return RetryPolicy{MaxAttempts: 1} }

// TransientPolicy retries rate limits, 5xx responses and transient network errors
// with capped exponential backoff and jitter.
func TransientPolicy(attempts int, base, max time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   base,
		MaxDelay:    max,
		Backoff:     Exponential,
		Jitter:      true,
		Retryable:   RetryTransient,
	}
}

// RateLimitPolicy retries only rate-limit errors, waiting base*attempt between tries.
func RateLimitPolicy(attempts int, base time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   base,
		Backoff:     Linear,
		Retryable:   IsRateLimited,
	}
}

// Delay returns the wait before the attempt following attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Backoff {
	case Linear:
		d = base * time.Duration(attempt)
	default:
		d = base << uint(attempt-1)
		if d <= 0 {
			d = p.MaxDelay
		}
	}
	if p.Jitter {
		d = withJitter(d)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or attempts
// run out. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = RetryTransient
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err != nil {
				return err
			}
			return cerr
		}
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) {
			return err
		}
		wait := p.Delay(attempt)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		if serr := sleep(ctx, wait); serr != nil {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryTransient reports whether err is worth another attempt: rate limits,
// provider 5xx errors and transient network failures.
func RetryTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	var se *ServerError
	if errors.As(err, &se) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) && ae.StatusCode >= http.StatusInternalServerError {
		return true
	}
	return isRetryableNetErr(err)
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
