package production

import (
	"fmt"

	"github.com/talgya/forge-factory/internal/inventory"
)

// State is the persistent part of a Machine.
type State struct {
	Program    Program
	Items      []inventory.Entry
	Durability int
	Breaked    bool
	Bonuses    map[Bonus]int
}

// Snapshot captures the machine's persistent state.
func (m *Machine) Snapshot() State {
	return State{
		Program:    m.program,
		Items:      m.inv.Entries(),
		Durability: m.durability,
		Breaked:    m.breaked,
		Bonuses:    m.BonusCounts(),
	}
}

// Restore rebuilds a machine from st. Restored machines are past their
// first configuration. A broken flag on a machine that is not fragile is
// dropped and durability is clamped to [0, maxDurability].
func Restore(st State, opts ...Option) (*Machine, error) {
	for b, n := range st.Bonuses {
		limit, ok := maxBonus[b]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBonus, b)
		}
		if n < 0 || n > limit {
			return nil, fmt.Errorf("%w: %s=%d", ErrBonusCapped, b, n)
		}
	}

	m := newMachine(st.Program, append(opts, WithBonuses(st.Bonuses))...)
	m.firstConfiguration = false

	for _, e := range st.Items {
		if err := m.inv.Add(e.Item, e.Quantity); err != nil {
			return nil, fmt.Errorf("restore %s: %w", e.Item, err)
		}
	}
	m.durability = min(max(st.Durability, 0), m.maxDurability)
	m.breaked = st.Breaked && m.fragile
	return m, nil
}
