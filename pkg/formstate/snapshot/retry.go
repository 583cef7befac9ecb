package snapshot

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// SQLite primary result codes that clear up on their own.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// RetryConfig configures RetryStore.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// Retryable optionally overrides IsTransient.
	Retryable func(error) bool
}

// DefaultRetry suits a local database shared by a few writers.
var DefaultRetry = RetryConfig{
	MaxAttempts:    4,
	InitialBackoff: 20 * time.Millisecond,
	MaxBackoff:     500 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// RetryError reports an operation that kept failing.
type RetryError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: %v (attempts: %d)", e.Op, e.Err, e.Attempts)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying: SQLite busy or
// locked errors, or any error reporting itself as temporary.
// ErrNotFound and ErrStoreClosed never are.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreClosed) {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}

// RetryStore wraps a Store and retries transient failures with
// exponential backoff.
type RetryStore struct {
	Store
	cfg   RetryConfig
	sleep func(time.Duration)
}

// WithRetry wraps store. A zero MaxAttempts means one attempt.
func WithRetry(store Store, cfg RetryConfig) *RetryStore {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsTransient
	}
	return &RetryStore{Store: store, cfg: cfg, sleep: time.Sleep}
}

// Save implements Store.
func (r *RetryStore) Save(formID, label string, data []byte) error {
	_, err := retry(r, "save", func() (struct{}, error) {
		return struct{}{}, r.Store.Save(formID, label, data)
	})
	return err
}

// Load implements Store.
func (r *RetryStore) Load(formID, label string) ([]byte, error) {
	return retry(r, "load", func() ([]byte, error) {
		return r.Store.Load(formID, label)
	})
}

// List implements Store.
func (r *RetryStore) List(formID string) ([]Info, error) {
	return retry(r, "list", func() ([]Info, error) {
		return r.Store.List(formID)
	})
}

// Delete implements Store.
func (r *RetryStore) Delete(formID, label string) error {
	_, err := retry(r, "delete", func() (struct{}, error) {
		return struct{}{}, r.Store.Delete(formID, label)
	})
	return err
}

// DeleteForm implements Store.
func (r *RetryStore) DeleteForm(formID string) error {
	_, err := retry(r, "delete form", func() (struct{}, error) {
		return struct{}{}, r.Store.DeleteForm(formID)
	})
	return err
}

func retry[T any](r *RetryStore, op string, fn func() (T, error)) (T, error) {
	backoff := r.cfg.InitialBackoff
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !r.cfg.Retryable(err) {
			return zero, err
		}
		if attempt >= r.cfg.MaxAttempts {
			return zero, &RetryError{Op: op, Attempts: attempt, Err: err}
		}

		r.sleep(withJitter(backoff, r.cfg.Jitter))
		backoff = time.Duration(float64(backoff) * r.cfg.BackoffFactor)
		if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

// withJitter returns base +/- (base * jitter * random).
func withJitter(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	return time.Duration(float64(base) + float64(base)*jitter*(rand.Float64()*2-1))
}
