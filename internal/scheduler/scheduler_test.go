package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/providercheck/internal/testutil"
)

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(testutil.NewTestLogger(t))
	require.NoError(t, err)
	return s
}

func TestScheduler_RegisterTask(t *testing.T) {
	s := newScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "conformance", Name: "Conformance run", Cron: "0 */6 * * *", Func: noop}))
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "conformance", Cron: "0 * * * *", Func: noop}), "duplicate id")
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "bad", Cron: "not a cron", Func: noop}))
	assert.Error(t, s.RegisterTask(TaskConfig{ID: "nil", Cron: "0 * * * *"}))

	tasks := s.ListTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "conformance", tasks[0].ID)
	assert.Nil(t, tasks[0].LastRun)
}

func TestScheduler_RegisterTaskDefaultsName(t *testing.T) {
	s := newScheduler(t)
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "nightly", Cron: "0 3 * * *", Func: func(context.Context) error { return nil }}))

	tasks := s.ListTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "nightly", tasks[0].Name)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newScheduler(t)
	var calls atomic.Int32
	boom := errors.New("boom")

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:   "conformance",
		Cron: "0 0 1 1 *",
		Func: func(ctx context.Context) error {
			if calls.Add(1) == 2 {
				return boom
			}
			return ctx.Err()
		},
	}))

	require.NoError(t, s.RunNow("conformance"))
	assert.ErrorIs(t, s.RunNow("conformance"), boom)
	assert.Error(t, s.RunNow("missing"))
	assert.Equal(t, int32(2), calls.Load())

	info := s.ListTasks()[0]
	require.NotNil(t, info.LastRun)
	assert.Equal(t, "boom", info.LastErr)
}

func TestScheduler_StopCancelsContext(t *testing.T) {
	// The task logs after done is signalled, so it must not write to t.
	s, err := New(testutil.NopLogger())
	require.NoError(t, err)
	done := make(chan error, 1)
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "conformance",
		Cron:       "0 0 1 1 *",
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			done <- ctx.Err()
			return ctx.Err()
		},
	}))

	s.Start()
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, <-done, context.Canceled)
}
