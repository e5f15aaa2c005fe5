// Package retry implements bounded exponential backoff for operations that
// can fail transiently, such as idempotent HTTP GETs. Callers mark errors
// worth retrying with Transient; everything else aborts immediately.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy bounds how often and for how long an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
	// Multiplier scales the wait after each failed attempt.
	Multiplier float64
	// Jitter perturbs each wait by up to this fraction of its value.
	Jitter float64
}

// DefaultPolicy returns the fetch defaults: three attempts, 100ms initial
// wait doubling up to 10s, 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// transient wraps errors that should be retried.
type transient struct {
	err error
}

func (t *transient) Error() string { return t.err.Error() }
func (t *transient) Unwrap() error { return t.err }

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transient{err: err}
}

// IsTransient reports whether err, or anything it wraps, was marked with
// Transient.
func IsTransient(err error) bool {
	var t *transient
	return errors.As(err, &t)
}

// Do runs op until it succeeds, returns a non-transient error, or the
// policy's attempts are spent. The context cancels both the waits between
// attempts and any further attempts; op itself is expected to honor the
// same context.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}
		select {
		case <-time.After(p.wait(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// wait computes the delay after the given 1-based failed attempt.
func (p Policy) wait(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
