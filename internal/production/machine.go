// Package production implements machines: factories that turn ingredients
// into goods and harvesters that gather resources, each on a recurring
// Timeline task with durability, upgrades and random breakage.
package production

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/entropy"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/scheduler"
)

// Machine defaults.
const (
	DefaultDurability  = 200
	DefaultCapacity    = 200
	DefaultBreakChance = 0.1
)

var (
	ErrWrongKind   = errors.New("machine kind does not support this program")
	ErrMachineFull = errors.New("machine inventory full")
)

// Position is a machine's place on the map.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Row, p.Col) }

// CycleResult reports what one firing did.
type CycleResult struct {
	Broke    bool // became broken this cycle
	Produced bool
	Delay    float64 // seconds until the next cycle
}

// Machine is a factory or harvester. It is driven by the Timeline as an
// Action and is not safe for concurrent use outside a Timeline step.
type Machine struct {
	ID      uuid.UUID
	program Program
	inv     *inventory.Inventory

	durability    int
	maxDurability int
	extraSpeed    float64

	bonuses map[Bonus]int
	applied map[Bonus]int

	fragile            bool
	breaked            bool
	firstConfiguration bool

	rng         entropy.Source
	breakChance float64

	// OnCycle observes every firing. Set by the owning session.
	OnCycle func(m *Machine, r CycleResult)
}

// Option configures a new Machine.
type Option func(*Machine)

// WithRandom sets the source of breakage rolls.
func WithRandom(src entropy.Source) Option {
	return func(m *Machine) { m.rng = src }
}

// WithBreakChance sets the per-cycle breakage probability of fragile machines.
func WithBreakChance(p float64) Option {
	return func(m *Machine) { m.breakChance = p }
}

// WithBonuses starts the machine with the given bonus counts.
func WithBonuses(counts map[Bonus]int) Option {
	return func(m *Machine) {
		for b, n := range counts {
			m.bonuses[b] = n
		}
	}
}

func newMachine(p Program, opts ...Option) *Machine {
	m := &Machine{
		ID:                 uuid.New(),
		program:            p,
		inv:                inventory.New(DefaultCapacity),
		durability:         DefaultDurability,
		maxDurability:      DefaultDurability,
		bonuses:            make(map[Bonus]int),
		applied:            make(map[Bonus]int),
		firstConfiguration: true,
		rng:                entropy.Crypto{},
		breakChance:        DefaultBreakChance,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ApplyBonuses()
	return m
}

// NewFactory builds a factory running recipe (nil for none).
func NewFactory(recipe *catalog.Recipe, opts ...Option) *Machine {
	return newMachine(Program{Kind: KindFactory, Recipe: recipe}, opts...)
}

// NewHarvester builds a harvester gathering resource (nil for none).
func NewHarvester(resource *catalog.Item, opts ...Option) *Machine {
	return newMachine(Program{Kind: KindHarvester, Resource: resource}, opts...)
}

// Run fires one production cycle and asks the Timeline to re-arm the
// machine's task with the next cycle time.
func (m *Machine) Run(s scheduler.Scope) scheduler.Outcome {
	r := m.Cycle()
	if r.Broke {
		slog.Debug("machine broke", "id", m.ID, "kind", m.program.Kind, "tick", s.Tick)
	}
	if m.OnCycle != nil {
		m.OnCycle(m, r)
	}
	return scheduler.Again(r.Delay)
}

// Cycle runs the breakage roll and one production attempt.
func (m *Machine) Cycle() CycleResult {
	var r CycleResult
	if m.fragile && !m.breaked && m.rng.Float() < m.breakChance {
		m.breaked = true
		r.Broke = true
	}

	if !m.breaked && m.program.Ready(m.inv, m.durability) {
		if err := m.program.produce(m.inv); err != nil {
			slog.Warn("production step failed", "id", m.ID, "error", err)
		} else {
			m.durability--
			r.Produced = true
		}
	}

	r.Delay = m.EffectiveTime()
	return r
}

// EffectiveTime returns the current cycle length in seconds.
func (m *Machine) EffectiveTime() float64 {
	return m.program.CycleTime(m.extraSpeed)
}

// Kind returns whether the machine is a factory or a harvester.
func (m *Machine) Kind() Kind { return m.program.Kind }

// Program returns what the machine produces.
func (m *Machine) Program() Program { return m.program }

// Recipe returns the factory's recipe, nil for harvesters.
func (m *Machine) Recipe() *catalog.Recipe { return m.program.Recipe }

// Resource returns the harvester's resource, nil for factories.
func (m *Machine) Resource() *catalog.Item { return m.program.Resource }

// SetRecipe switches a factory to recipe. It takes effect on the next
// cycle; the running delay is left alone.
func (m *Machine) SetRecipe(recipe *catalog.Recipe) error {
	if m.program.Kind != KindFactory {
		return ErrWrongKind
	}
	m.program.Recipe = recipe
	return nil
}

// SetResource switches a harvester to resource.
func (m *Machine) SetResource(resource *catalog.Item) error {
	if m.program.Kind != KindHarvester {
		return ErrWrongKind
	}
	m.program.Resource = resource
	return nil
}

// Versatile reports whether the machine exposes its program selection.
// A new machine is versatile on its first configuration only; afterwards
// it takes the VERSATILE bonus.
func (m *Machine) Versatile() bool {
	if m.firstConfiguration {
		m.firstConfiguration = false
		return true
	}
	return m.bonuses[BonusVersatile] == 1
}

// Repair clears the broken state.
func (m *Machine) Repair() { m.breaked = false }

// Maintain restores durability to its maximum. It reports false when the
// machine was already at full durability.
func (m *Machine) Maintain() bool {
	if m.durability == m.maxDurability {
		return false
	}
	m.durability = m.maxDurability
	return true
}

// Withdraw moves quantity units of item from the machine to dst.
func (m *Machine) Withdraw(item *catalog.Item, quantity int, dst *inventory.Inventory) error {
	if quantity < 0 {
		return inventory.ErrInvalidQuantity
	}
	if err := m.inv.Remove(item, quantity); err != nil {
		return err
	}
	return dst.Add(item, quantity)
}

// Deposit moves quantity units of item from src into the machine.
func (m *Machine) Deposit(item *catalog.Item, quantity int, src *inventory.Inventory) error {
	if quantity < 0 {
		return inventory.ErrInvalidQuantity
	}
	if m.inv.Free() < quantity {
		return ErrMachineFull
	}
	if err := src.Remove(item, quantity); err != nil {
		return err
	}
	return m.inv.Add(item, quantity)
}

// Inventory returns the machine's own store.
func (m *Machine) Inventory() *inventory.Inventory { return m.inv }

func (m *Machine) Durability() int      { return m.durability }
func (m *Machine) MaxDurability() int   { return m.maxDurability }
func (m *Machine) ExtraSpeed() float64  { return m.extraSpeed }
func (m *Machine) Fragile() bool        { return m.fragile }
func (m *Machine) Breaked() bool        { return m.breaked }
func (m *Machine) BreakChance() float64 { return m.breakChance }

func (m *Machine) String() string {
	return fmt.Sprintf("%s(%s, %d/%d)", m.program.Kind, m.ID, m.durability, m.maxDurability)
}
