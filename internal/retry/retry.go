package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/pkg/types"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultCallTimeout = 30 * time.Second
)

// Executor runs single remote calls with bounded retries and exponential
// backoff. Permanent failures are returned after the first attempt.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration
	callTimeout time.Duration
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor
type Option func(*Executor)

// WithSleep replaces the backoff sleep, mainly for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// NewExecutor creates a retry executor. Non-positive values fall back to
// the defaults; a zero callTimeout disables the per-call timeout.
func NewExecutor(maxAttempts int, baseDelay, callTimeout time.Duration, logger *zap.Logger, opts ...Option) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Executor{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		callTimeout: callTimeout,
		logger:      logger,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backoff returns the delay before the attempt following the given one
// (1-based): baseDelay * 2^(attempt-1).
func (e *Executor) Backoff(attempt int) time.Duration {
	return e.baseDelay * time.Duration(1<<(attempt-1))
}

// Do executes fn under the executor's retry policy. It is a function rather
// than a method so the result type can be generic.
func Do[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result, err := call(ctx, e.callTimeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		e.logger.Warn("remote call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Error(err),
		)

		if IsPermanent(err) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == e.maxAttempts {
			break
		}

		delay := e.Backoff(attempt)
		e.logger.Info("retrying remote call",
			zap.String("op", op),
			zap.Duration("backoff", delay),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// Run is Do for calls that only return an error
func Run(ctx context.Context, e *Executor, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, e, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// IsPermanent reports whether retrying err cannot help: HTTP 401/403/404,
// an existing branch, an invalid event or a cancelled caller.
func IsPermanent(err error) bool {
	if errors.Is(err, types.ErrPermanentRemote) {
		return true
	}
	var branchErr *types.BranchExistsError
	if errors.As(err, &branchErr) {
		return true
	}
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	return errors.Is(err, context.Canceled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
