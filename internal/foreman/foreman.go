package foreman

import (
	"context"
	"log/slog"
	"time"
)

// Foreman runs observe, triage, decide and act cycles.
type Foreman struct {
	Observer   *Observer
	Actor      *Actor
	Memory     *Memory
	MaxActions int
}

// New creates a Foreman for the API at baseURL.
func New(baseURL, adminKey string, mem *Memory) *Foreman {
	if mem == nil {
		mem = LoadMemory("")
	}
	return &Foreman{
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL, adminKey),
		Memory:   mem,
	}
}

// RunCycle executes one observe, decide, act cycle.
func (f *Foreman) RunCycle(ctx context.Context) (CycleRecord, error) {
	snap, err := f.Observer.Observe(ctx)
	if err != nil {
		return CycleRecord{}, err
	}
	health := Triage(snap)
	slog.Info("observation complete",
		"tick", snap.Status.Tick,
		"machines", len(snap.Machines),
		"broken", len(health.Broken),
		"worn", len(health.WornOut),
		"full", len(health.Full),
		"level", health.Level,
	)

	rec := CycleRecord{Tick: snap.Status.Tick, Level: health.Level}
	for _, a := range Decide(health, f.Memory, f.MaxActions) {
		if err := f.Actor.Act(ctx, a); err != nil {
			slog.Warn("action failed", "action", a.Key(), "error", err)
			rec.Failed = append(rec.Failed, a.Key())
			continue
		}
		slog.Info("action executed", "action", a.Key(), "reason", a.Reason, "item", a.Item, "quantity", a.Quantity)
		rec.Done = append(rec.Done, a.Key())
	}

	f.Memory.Record(rec)
	f.Memory.Save()
	return rec, nil
}

// WaitReady polls the API with exponential backoff until it responds or
// ctx is done.
func (f *Foreman) WaitReady(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second
	for {
		if f.Observer.Ready(ctx) {
			slog.Info("forgesim API is ready")
			return nil
		}
		slog.Info("forgesim API not ready, retrying...", "backoff", backoff)
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Run executes a cycle immediately and then every interval until ctx is done.
func (f *Foreman) Run(ctx context.Context, interval time.Duration) error {
	if err := f.WaitReady(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := f.RunCycle(ctx); err != nil {
			slog.Error("foreman cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
