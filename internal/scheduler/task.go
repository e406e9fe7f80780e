// Package scheduler implements the deferred-tick task timeline that drives
// every time-based process of a game session.
package scheduler

import (
	"fmt"
	"time"

	"github.com/talgya/forge-factory/internal/catalog"
)

// DefaultInterval is the tick interval of the game clock (8 ticks/second).
const DefaultInterval = 125 * time.Millisecond

// TicksFor converts a duration in seconds to a tick count, truncating.
// Recipe and resource timings are tuned against this exact conversion.
func TicksFor(seconds float64, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	ticks := int(seconds / interval.Seconds())
	if ticks < 0 {
		return 0
	}
	return ticks
}

// Outcome is what an Action asks the Timeline to do with its Task after
// firing. Rearm re-arms the same Task with Delay seconds and resubmits it.
type Outcome struct {
	Rearm bool
	Delay float64
}

// Done is the Outcome of a one-shot action.
var Done = Outcome{}

// Again returns an Outcome that re-arms the Task after delay seconds.
func Again(delay float64) Outcome {
	return Outcome{Rearm: true, Delay: delay}
}

// Action is the work a Task performs when it fires. Actions run inside a
// Timeline step and reach the Timeline only through the given Scope.
type Action interface {
	Run(s Scope) Outcome
}

// ActionFunc adapts a function to Action.
type ActionFunc func(s Scope) Outcome

func (f ActionFunc) Run(s Scope) Outcome { return f(s) }

// Task is a unit of delayed work counted in ticks.
type Task struct {
	ticks    int
	interval time.Duration
	action   Action

	// Player craft bookkeeping, set by SubmitCraft.
	craft  bool
	result *catalog.Item
}

// NewTask creates a Task that becomes due after seconds on a clock ticking
// every interval.
func NewTask(seconds float64, interval time.Duration, action Action) *Task {
	return &Task{
		ticks:    TicksFor(seconds, interval),
		interval: interval,
		action:   action,
	}
}

// SetTime re-arms the task with a new duration, keeping its identity.
func (t *Task) SetTime(seconds float64) {
	t.ticks = TicksFor(seconds, t.interval)
}

// Decrease removes one tick from the remaining count.
func (t *Task) Decrease() {
	if t.ticks > 0 {
		t.ticks--
	}
}

// Due reports whether the remaining count reached zero.
func (t *Task) Due() bool { return t.ticks == 0 }

// Ticks returns the remaining tick count.
func (t *Task) Ticks() int { return t.ticks }

// Seconds returns the remaining time in seconds, truncated.
func (t *Task) Seconds() int {
	return int(float64(t.ticks) * t.interval.Seconds())
}

// Action returns the task's action.
func (t *Task) Action() Action { return t.action }

// Craft reports whether the task belongs to the player crafting pipeline.
func (t *Task) Craft() bool { return t.craft }

func (t *Task) String() string {
	return fmt.Sprintf("Task(ticks=%d)", t.ticks)
}
