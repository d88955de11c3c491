package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestCronDueAtMidnight(t *testing.T) {
	s := New()
	s.now = fixedClock(time.Date(2026, 10, 15, 23, 59, 0, 0, time.Local))

	var runs atomic.Int32
	require.NoError(t, s.Daily().Name("sweep").Run(func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx := context.Background()
	assert.Equal(t, 0, s.RunDue(ctx, time.Date(2026, 10, 15, 23, 59, 30, 0, time.Local)))
	assert.Equal(t, 1, s.RunDue(ctx, time.Date(2026, 10, 16, 0, 0, 0, 0, time.Local)))
	s.Wait()
	assert.Equal(t, int32(1), runs.Load())

	assert.Equal(t, 0, s.RunDue(ctx, time.Date(2026, 10, 16, 0, 0, 1, 0, time.Local)))
}

func TestInvalidCron(t *testing.T) {
	err := New().Cron("not a cron").Run(func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestWithoutOverlapping(t *testing.T) {
	s := New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = fixedClock(start)

	release := make(chan struct{})
	require.NoError(t, s.Every(time.Second).Name("slow").WithoutOverlapping().Run(func(context.Context) error {
		<-release
		return nil
	}))

	ctx := context.Background()
	assert.Equal(t, 1, s.RunDue(ctx, start.Add(time.Second)))
	assert.Equal(t, 0, s.RunDue(ctx, start.Add(2*time.Second)))
	close(release)
	s.Wait()
	assert.Equal(t, 1, s.RunDue(ctx, start.Add(3*time.Second)))
	s.Wait()
}

func TestRunNow(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	require.NoError(t, s.Daily().Name("a").Run(func(context.Context) error { return boom }))

	assert.ErrorIs(t, s.RunNow(context.Background(), "a"), boom)
	assert.Error(t, s.RunNow(context.Background(), "missing"))
	assert.Len(t, s.List(), 1)
}
