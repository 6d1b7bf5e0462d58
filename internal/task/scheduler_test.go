package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

type countingTask struct {
	runs     atomic.Int32
	schedule cron.Schedule
	startup  bool
	fail     bool
	panics   bool
}

func (c *countingTask) Name() string { return "countingTask" }

func (c *countingTask) Run(ctx context.Context) error {
	c.runs.Add(1)
	if c.panics {
		panic("boom")
	}
	if c.fail {
		return errors.New("failed")
	}
	return nil
}

func (c *countingTask) Schedule() cron.Schedule { return c.schedule }
func (c *countingTask) IsStartupRun() bool      { return c.startup }

func TestScheduler_StartupOnly(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	task := &countingTask{startup: true}
	s.AddTask(task)
	s.Start(context.Background())

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), task.runs.Load())
}

func TestScheduler_Loop(t *testing.T) {
	s := NewScheduler(nil)
	task := &countingTask{schedule: every(5 * time.Millisecond), fail: true}
	s.AddTask(task)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return task.runs.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	stopped := task.runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, task.runs.Load(), "no runs after stop")
}

func TestScheduler_PanicDoesNotStopLoop(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	task := &countingTask{schedule: every(5 * time.Millisecond), startup: true, panics: true}
	s.AddTask(task)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return task.runs.Load() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(zap.NewNop())
	s.AddTask(&countingTask{schedule: every(time.Hour)})
	s.Start(ctx)
	cancel()

	stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	assert.NoError(t, s.Stop(stopCtx))
}

func TestScheduler_NoTasks(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	s.Start(context.Background())
	assert.NoError(t, s.Stop(context.Background()))
}
