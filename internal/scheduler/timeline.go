package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/forge-factory/internal/catalog"
)

// Timeline owns the live task set of one game session. Additions and
// removals are deferred to the end of a step, so a firing action never
// observes a partially updated live set.
//
// The mutex keeps the single-writer discipline when collaborators submit
// from other goroutines. Actions run with it held and must use their Scope
// instead of the Timeline's own methods.
type Timeline struct {
	mu       sync.Mutex
	interval time.Duration

	live    []*Task
	pending []*Task

	running  bool
	started  chan struct{}
	tick     uint64
	crafting bool

	// Both backlogs are popped from the end they are pushed to.
	craftBacklog []*Task
	results      []*catalog.Item
}

// StepStats summarizes one step.
type StepStats struct {
	Tick            uint64
	Fired           int
	CraftsCompleted int
	Live            int
}

// NewTimeline creates an idle timeline ticking every interval.
func NewTimeline(interval time.Duration) *Timeline {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Timeline{interval: interval, started: make(chan struct{})}
}

// Interval returns the tick interval.
func (tl *Timeline) Interval() time.Duration { return tl.interval }

// NewTask creates a Task on this timeline's clock.
func (tl *Timeline) NewTask(seconds float64, action Action) *Task {
	return NewTask(seconds, tl.interval, action)
}

// Submit enqueues a task. It joins the live set at the end of the next step.
// The first submission starts the timeline.
func (tl *Timeline) Submit(t *Task) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.submit(t)
}

func (tl *Timeline) submit(t *Task) {
	tl.pending = append(tl.pending, t)
	tl.start()
}

func (tl *Timeline) start() {
	if !tl.running {
		tl.running = true
		close(tl.started)
	}
}

// SubmitCraft enqueues a player craft taking seconds to complete. Only one
// craft is active at a time; the others wait in the backlog.
func (tl *Timeline) SubmitCraft(result *catalog.Item, seconds float64, onComplete Action) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.submitCraft(result, seconds, onComplete)
}

func (tl *Timeline) submitCraft(result *catalog.Item, seconds float64, onComplete Action) {
	t := NewTask(seconds, tl.interval, onComplete)
	t.craft = true
	t.result = result

	tl.start()
	if !tl.crafting {
		tl.crafting = true
		tl.pending = append(tl.pending, t)
	} else {
		tl.craftBacklog = append(tl.craftBacklog, t)
	}
	tl.results = append(tl.results, result)
}

// Step runs one scheduling cycle. It is a no-op until the first submission.
func (tl *Timeline) Step() StepStats {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if !tl.running {
		return StepStats{}
	}
	tl.tick++
	stats := StepStats{Tick: tl.tick}

	var fired []*Task
	for _, t := range tl.live {
		if t.Due() {
			if t.craft {
				stats.CraftsCompleted++
			}
			tl.fire(t)
			fired = append(fired, t)
		} else {
			t.Decrease()
		}
	}
	stats.Fired = len(fired)

	if len(fired) > 0 {
		done := make(map[*Task]struct{}, len(fired))
		for _, t := range fired {
			done[t] = struct{}{}
		}
		kept := tl.live[:0]
		for _, t := range tl.live {
			if _, ok := done[t]; !ok {
				kept = append(kept, t)
			}
		}
		for i := len(kept); i < len(tl.live); i++ {
			tl.live[i] = nil
		}
		tl.live = kept
	}

	tl.live = append(tl.live, tl.pending...)
	tl.pending = tl.pending[:0]

	stats.Live = len(tl.live)
	return stats
}

func (tl *Timeline) fire(t *Task) {
	var out Outcome
	if t.action != nil {
		out = t.action.Run(Scope{tl: tl, Tick: tl.tick})
	}

	if t.craft {
		tl.completeCraft(t)
		return
	}
	if out.Rearm {
		t.SetTime(out.Delay)
		tl.pending = append(tl.pending, t)
	}
}

func (tl *Timeline) completeCraft(t *Task) {
	if n := len(tl.results); n > 0 {
		tl.results = tl.results[:n-1]
	}
	slog.Debug("craft completed", "result", t.result, "tick", tl.tick, "backlog", len(tl.craftBacklog))

	if n := len(tl.craftBacklog); n > 0 {
		next := tl.craftBacklog[n-1]
		tl.craftBacklog = tl.craftBacklog[:n-1]
		tl.crafting = true
		tl.pending = append(tl.pending, next)
		return
	}
	tl.crafting = false
}

// Reset clears every task and backlog and stops the timeline until the
// next submission.
func (tl *Timeline) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.live = nil
	tl.pending = nil
	tl.craftBacklog = nil
	tl.results = nil
	tl.running = false
	tl.started = make(chan struct{})
	tl.crafting = false
	tl.tick = 0
}

// Running reports whether the timeline has started.
func (tl *Timeline) Running() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.running
}

// Started returns a channel closed by the first submission since the
// timeline was created or last reset.
func (tl *Timeline) Started() <-chan struct{} {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.started
}

// Tick returns the number of steps run since the timeline started.
func (tl *Timeline) Tick() uint64 {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.tick
}

// Len returns the number of live and pending tasks.
func (tl *Timeline) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.live) + len(tl.pending)
}

// Crafting reports whether a player craft is active.
func (tl *Timeline) Crafting() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.crafting
}

// Backlog returns the number of crafts waiting behind the active one.
func (tl *Timeline) Backlog() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.craftBacklog)
}

// PendingResults returns the result items of every craft not yet completed,
// in submission order.
func (tl *Timeline) PendingResults() []*catalog.Item {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]*catalog.Item, len(tl.results))
	copy(out, tl.results)
	return out
}

// Do runs fn with the timeline locked, giving it the same Scope a firing
// action gets. Collaborators use it to mutate session state atomically
// with respect to steps.
func (tl *Timeline) Do(fn func(s Scope)) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	fn(Scope{tl: tl, Tick: tl.tick})
}

// Scope is the view of the Timeline handed to a firing action.
type Scope struct {
	tl   *Timeline
	Tick uint64
}

// Submit defers t to the end of the current step.
func (s Scope) Submit(t *Task) { s.tl.submit(t) }

// SubmitCraft is Timeline.SubmitCraft from inside a step.
func (s Scope) SubmitCraft(result *catalog.Item, seconds float64, onComplete Action) {
	s.tl.submitCraft(result, seconds, onComplete)
}

// NewTask creates a Task on the timeline's clock.
func (s Scope) NewTask(seconds float64, action Action) *Task {
	return NewTask(seconds, s.tl.interval, action)
}

// PendingResults is Timeline.PendingResults from inside a step.
func (s Scope) PendingResults() []*catalog.Item {
	out := make([]*catalog.Item, len(s.tl.results))
	copy(out, s.tl.results)
	return out
}
