package cron

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJob(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	var calls atomic.Int32

	require.NoError(t, s.Add("tick", "* * * * * *", func() error {
		calls.Add(1)
		return nil
	}))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.False(t, s.NextRun("tick").IsZero())
}

func TestSchedulerRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	noop := func() error { return nil }

	require.NoError(t, s.Add("job", "0 */5 * * * *", noop))
	assert.Error(t, s.Add("job", "0 */5 * * * *", noop))
	assert.Error(t, s.Add("bad", "not a schedule", noop))
	assert.True(t, s.NextRun("missing").IsZero())
	assert.Equal(t, []string{"job"}, s.Jobs())
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	job := func() error {
		calls.Add(1)
		close(started)
		<-release
		return errors.New("done")
	}

	go s.RunNow("slow", job)
	<-started
	assert.True(t, s.IsRunning("slow"))

	s.RunNow("slow", job)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	assert.Eventually(t, func() bool { return !s.IsRunning("slow") }, time.Second, 10*time.Millisecond)
}
