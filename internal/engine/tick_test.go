package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/forge-factory/internal/scheduler"
)

type fakeStepper struct {
	steps   atomic.Int64
	started chan struct{}
}

func newFakeStepper() *fakeStepper { return &fakeStepper{started: make(chan struct{})} }

func (f *fakeStepper) Step() scheduler.StepStats {
	n := f.steps.Add(1)
	return scheduler.StepStats{Tick: uint64(n)}
}

func (f *fakeStepper) Started() <-chan struct{} { return f.started }

func runEngine(t *testing.T, e *Engine) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestEngine_WaitsForStart(t *testing.T) {
	s := newFakeStepper()
	e := NewEngine(s, time.Millisecond)
	cancel, done := runEngine(t, e)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, s.steps.Load(), "no steps before the first task")

	close(s.started)
	assert.Eventually(t, func() bool { return s.steps.Load() >= 5 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, e.Running())
	assert.GreaterOrEqual(t, e.Ticks(), uint64(5))
}

func TestEngine_OnTickAndStop(t *testing.T) {
	s := newFakeStepper()
	close(s.started)
	e := NewEngine(s, time.Millisecond)

	var last atomic.Uint64
	e.OnTick = func(stats scheduler.StepStats) { last.Store(stats.Tick) }
	_, done := runEngine(t, e)

	assert.Eventually(t, func() bool { return last.Load() >= 3 }, time.Second, time.Millisecond)
	e.Stop()
	require.NoError(t, <-done)
}

func TestEngine_PauseAndResume(t *testing.T) {
	s := newFakeStepper()
	close(s.started)
	e := NewEngine(s, time.Millisecond)
	e.SetSpeed(0)
	_, done := runEngine(t, e)

	assert.Eventually(t, e.Running, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, s.steps.Load(), "paused engine does not step")

	e.SetSpeed(4)
	assert.Eventually(t, func() bool { return s.steps.Load() > 0 }, time.Second, time.Millisecond)
	e.Stop()
	require.NoError(t, <-done)
}

func TestEngine_RejectsSecondRun(t *testing.T) {
	s := newFakeStepper()
	e := NewEngine(s, time.Millisecond)
	_, done := runEngine(t, e)
	require.Eventually(t, e.Running, time.Second, time.Millisecond)

	err := e.Run(context.Background())
	assert.ErrorContains(t, err, "already running")

	e.Stop()
	require.NoError(t, <-done)
}

func TestEngine_Defaults(t *testing.T) {
	e := NewEngine(newFakeStepper(), 0)
	assert.Equal(t, scheduler.DefaultInterval, e.Interval())
	assert.Equal(t, 1.0, e.Speed())

	e.SetSpeed(-3)
	assert.Zero(t, e.Speed())
}

func TestGameTime(t *testing.T) {
	assert.Equal(t, "0:00:00", GameTime(0, time.Second))
	assert.Equal(t, "0:00:01", GameTime(8, 125*time.Millisecond))
	assert.Equal(t, "1:01:01", GameTime(3661, time.Second))
}
