// Package engine provides the fixed-interval clock that drives a game
// session's Timeline, and the Session tying the simulation core together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/forge-factory/internal/scheduler"
)

// pausePoll is how often a paused engine checks whether it was resumed.
const pausePoll = 100 * time.Millisecond

// Stepper is what the engine drives.
type Stepper interface {
	Step() scheduler.StepStats
	Started() <-chan struct{}
}

// Engine drives a Stepper forward.
type Engine struct {
	mu       sync.Mutex
	speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	interval time.Duration // Base tick interval
	running  bool
	ticks    uint64 // Steps driven by this engine
	stop     context.CancelFunc

	stepper Stepper

	// OnTick runs after every step.
	OnTick func(stats scheduler.StepStats)
}

// NewEngine creates an engine stepping s every interval.
func NewEngine(s Stepper, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = scheduler.DefaultInterval
	}
	return &Engine{
		speed:    1.0,
		interval: interval,
		stepper:  s,
	}
}

// Run waits for the first submitted task, then steps every interval until
// ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.stop = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.stop = nil
		e.mu.Unlock()
	}()

	slog.Info("simulation engine waiting for first task", "interval", e.interval)
	select {
	case <-e.stepper.Started():
	case <-ctx.Done():
		slog.Info("simulation engine stopped before start")
		return nil
	}
	slog.Info("simulation engine started", "speed", e.Speed())

	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: check again shortly.
			if !sleep(ctx, pausePoll) {
				break
			}
			continue
		}

		start := time.Now()
		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.interval) / speed)
		if elapsed < target && !sleep(ctx, target-elapsed) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	slog.Info("simulation engine stopped", "ticks", e.Ticks())
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	stats := e.stepper.Step()

	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(stats)
	}
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		e.stop()
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Speed returns the speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed sets the speed multiplier; 0 pauses.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	slog.Info("simulation speed changed", "speed", speed)
}

// Interval returns the base tick interval.
func (e *Engine) Interval() time.Duration { return e.interval }

// Ticks returns the number of steps this engine has driven.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// GameTime formats a tick count on a clock ticking every interval.
func GameTime(tick uint64, interval time.Duration) string {
	d := time.Duration(tick) * interval
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
