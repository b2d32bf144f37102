package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/clintrovert/taskbridge/pkg/types"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestExecutor(t *testing.T, rec *sleepRecorder) *Executor {
	return NewExecutor(3, time.Second, 0, zaptest.NewLogger(t), WithSleep(rec.sleep))
}

func TestDoPermanentErrorSingleAttempt(t *testing.T) {
	for _, status := range []int{401, 403, 404} {
		rec := &sleepRecorder{}
		e := newTestExecutor(t, rec)

		attempts := 0
		_, err := Do(context.Background(), e, "get", func(context.Context) (string, error) {
			attempts++
			return "", &types.RemoteError{Op: "get", StatusCode: status, Err: errors.New("denied")}
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts, "status %d", status)
		assert.Empty(t, rec.delays)
		assert.Equal(t, status, types.StatusCode(err))
	}
}

func TestDoTransientErrorBackoff(t *testing.T) {
	rec := &sleepRecorder{}
	e := newTestExecutor(t, rec)

	attempts := 0
	lastErr := &types.RemoteError{Op: "post", StatusCode: 503, Err: errors.New("unavailable")}
	_, err := Do(context.Background(), e, "post", func(context.Context) (int, error) {
		attempts++
		return 0, lastErr
	})

	require.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, rec.delays)
}

func TestDoNetworkErrorIsTransient(t *testing.T) {
	rec := &sleepRecorder{}
	e := newTestExecutor(t, rec)

	attempts := 0
	got, err := Do(context.Background(), e, "get", func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("connection reset by peer")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestDoBranchExistsNotRetried(t *testing.T) {
	rec := &sleepRecorder{}
	e := newTestExecutor(t, rec)

	attempts := 0
	err := Run(context.Background(), e, "create_branch", func(context.Context) error {
		attempts++
		return &types.BranchExistsError{Branch: "1-x"}
	})

	var branchErr *types.BranchExistsError
	require.ErrorAs(t, err, &branchErr)
	assert.Equal(t, 1, attempts)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(5, time.Hour, 0, zaptest.NewLogger(t))

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, e, "slow", func(context.Context) error {
			attempts++
			return errors.New("timeout")
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.LessOrEqual(t, attempts, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
}

func TestDoAppliesCallTimeout(t *testing.T) {
	rec := &sleepRecorder{}
	e := NewExecutor(1, time.Second, 10*time.Millisecond, zaptest.NewLogger(t), WithSleep(rec.sleep))

	err := Run(context.Background(), e, "hang", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	e := NewExecutor(0, 0, 0, nil)
	assert.Equal(t, time.Second, e.Backoff(1))
	assert.Equal(t, 2*time.Second, e.Backoff(2))
	assert.Equal(t, 4*time.Second, e.Backoff(3))
}
