package captcha

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"time"
)

// Default polling configuration values
const (
	DEF_INITIAL_DELAY  = 5 * time.Second
	DEF_BASE_INTERVAL  = 2 * time.Second
	DEF_MAX_INTERVAL   = 10 * time.Second
	DEF_BACKOFF_FACTOR = 1.5
	DEF_JITTER_FACTOR  = 0.2
	DEF_SOLVE_TIMEOUT  = 3 * time.Minute
)

// PollPolicy bounds the wait for a solver job. The whole wait, including
// the initial delay, never exceeds Timeout.
type PollPolicy struct {
	InitialDelay  time.Duration // Wait before the first result check
	BaseInterval  time.Duration // Delay after the first unfinished check
	MaxInterval   time.Duration // Cap on the delay between checks
	BackoffFactor float64       // Exponential growth per attempt
	JitterFactor  float64       // Random jitter factor (0-1)
	Timeout       time.Duration // Upper bound on the whole wait
}

// DefaultPollPolicy returns the policy used when none is configured.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		InitialDelay:  DEF_INITIAL_DELAY,
		BaseInterval:  DEF_BASE_INTERVAL,
		MaxInterval:   DEF_MAX_INTERVAL,
		BackoffFactor: DEF_BACKOFF_FACTOR,
		JitterFactor:  DEF_JITTER_FACTOR,
		Timeout:       DEF_SOLVE_TIMEOUT,
	}
}

// Delay returns how long to wait before check number attempt (1-based).
func (p *PollPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return p.InitialDelay
	}
	delay := float64(p.BaseInterval) * math.Pow(p.BackoffFactor, float64(attempt-2))
	if p.JitterFactor > 0 {
		delay *= 1 + p.JitterFactor*(2*rand.Float64()-1)
	}
	if p.MaxInterval > 0 && delay > float64(p.MaxInterval) {
		delay = float64(p.MaxInterval)
	}
	if delay < 0 {
		delay = float64(p.BaseInterval)
	}
	return time.Duration(delay)
}

// retryable reports whether a failed result check may be repeated.
// Transport hiccups are; solver-side errors and cancellation are not.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
