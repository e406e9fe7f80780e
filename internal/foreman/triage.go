package foreman

import (
	"github.com/talgya/forge-factory/internal/engine"
	"github.com/talgya/forge-factory/internal/production"
)

// Thresholds used by Triage.
const (
	lowDurability = 0.25 // fraction of max durability
	nearlyFull    = 0.9  // fraction of machine capacity
)

// Levels reported by Triage, most urgent first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelHealthy  = "HEALTHY"
)

// Health holds diagnostic signals derived from a Snapshot.
type Health struct {
	Broken  []engine.MachineView
	WornOut []engine.MachineView // durability below lowDurability
	Full    []engine.MachineView // inventory above nearlyFull
	Idle    int                  // machines with no program
	Wallet  int
	Level   string
}

// Triage computes a Health from the snapshot's data.
func Triage(snap *Snapshot) *Health {
	h := &Health{Wallet: snap.Status.Wallet}

	for _, m := range snap.Machines {
		if m.Broken {
			h.Broken = append(h.Broken, m)
		}
		if m.MaxDurability > 0 && float64(m.Durability) < lowDurability*float64(m.MaxDurability) {
			h.WornOut = append(h.WornOut, m)
		}
		if m.Inventory.Capacity > 0 && float64(m.Inventory.Count) >= nearlyFull*float64(m.Inventory.Capacity) {
			h.Full = append(h.Full, m)
		}
		if m.Program == "idle" {
			h.Idle++
		}
	}

	switch {
	case len(h.Broken) > 0 || hasZeroDurability(h.WornOut):
		h.Level = LevelCritical
	case len(h.WornOut) > 0 || len(h.Full) > 0:
		h.Level = LevelWarning
	default:
		h.Level = LevelHealthy
	}
	return h
}

func hasZeroDurability(ms []engine.MachineView) bool {
	for _, m := range ms {
		if m.Durability == 0 {
			return true
		}
	}
	return false
}

// canAfford reports whether the wallet covers n paid maintenances.
func (h *Health) canAfford(n int) bool {
	return h.Wallet >= n*production.UpgradeCost
}
