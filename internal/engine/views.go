package engine

import (
	"fmt"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/production"
	"github.com/talgya/forge-factory/internal/scheduler"
)

// ItemCount is one line of an inventory listing.
type ItemCount struct {
	Item     catalog.ItemKind `json:"item"`
	Quantity int              `json:"quantity"`
}

// InventoryView is a read-only copy of an inventory.
type InventoryView struct {
	Items    []ItemCount `json:"items"`
	Count    int         `json:"count"`
	Capacity int         `json:"capacity"` // -1 when unbounded
}

func inventoryView(inv *inventory.Inventory) InventoryView {
	v := InventoryView{Count: inv.Count(), Capacity: inv.Capacity(), Items: []ItemCount{}}
	if v.Capacity == inventory.Unbounded {
		v.Capacity = -1
	}
	for _, e := range inv.Entries() {
		v.Items = append(v.Items, ItemCount{Item: e.Item.Kind, Quantity: e.Quantity})
	}
	return v
}

// MachineView is a read-only copy of a placed machine.
type MachineView struct {
	ID            string                   `json:"id"`
	Position      production.Position      `json:"position"`
	Kind          string                   `json:"kind"`
	Program       string                   `json:"program"`
	Output        catalog.ItemKind         `json:"output,omitempty"`
	CycleSeconds  float64                  `json:"cycle_seconds"`
	Durability    int                      `json:"durability"`
	MaxDurability int                      `json:"max_durability"`
	Fragile       bool                     `json:"fragile"`
	Broken        bool                     `json:"broken"`
	Bonuses       map[production.Bonus]int `json:"bonuses"`
	Inventory     InventoryView            `json:"inventory"`
}

func (s *Session) view(pos production.Position, m *production.Machine) MachineView {
	v := MachineView{
		ID:            m.ID.String(),
		Position:      pos,
		Kind:          m.Kind().String(),
		CycleSeconds:  m.EffectiveTime(),
		Durability:    m.Durability(),
		MaxDurability: m.MaxDurability(),
		Fragile:       m.Fragile(),
		Broken:        m.Breaked(),
		Bonuses:       m.BonusCounts(),
		Inventory:     inventoryView(m.Inventory()),
	}
	switch {
	case m.Recipe() != nil:
		v.Program = m.Recipe().String()
		v.Output = m.Recipe().Result.Kind
	case m.Resource() != nil:
		v.Program = string(m.Resource().Kind)
		v.Output = m.Resource().Kind
	default:
		v.Program = "idle"
	}
	return v
}

// Machines lists every placed machine in row, col order.
func (s *Session) Machines() []MachineView {
	var out []MachineView
	s.timeline.Do(func(scheduler.Scope) {
		out = make([]MachineView, 0, len(s.machines))
		for _, pos := range s.sortedPositions() {
			out = append(out, s.view(pos, s.machines[pos]))
		}
	})
	return out
}

// Machine returns the machine at pos.
func (s *Session) Machine(pos production.Position) (MachineView, error) {
	var v MachineView
	err := s.withMachine(pos, func(m *production.Machine) error {
		v = s.view(pos, m)
		return nil
	})
	return v, err
}

// Inventory returns the player's inventory.
func (s *Session) Inventory() InventoryView {
	var v InventoryView
	s.timeline.Do(func(scheduler.Scope) { v = inventoryView(s.player.Inventory) })
	return v
}

// Status is a snapshot of the session's headline numbers.
type Status struct {
	Session   string `json:"session"`
	Tick      uint64 `json:"tick"`
	GameTime  string `json:"game_time"`
	Running   bool   `json:"running"`
	Wallet    int    `json:"wallet"`
	Machines  int    `json:"machines"`
	Tasks     int    `json:"tasks"`
	Crafting  bool   `json:"crafting"`
	Backlog   int    `json:"craft_backlog"`
	Catalog   string `json:"catalog"`
	Inventory int    `json:"inventory_count"`
}

// Status returns the current session status.
func (s *Session) Status() Status {
	st := Status{
		Session:  s.ID.String(),
		Tick:     s.timeline.Tick(),
		Running:  s.timeline.Running(),
		Tasks:    s.timeline.Len(),
		Crafting: s.timeline.Crafting(),
		Backlog:  s.timeline.Backlog(),
		Catalog:  s.Catalog.Digest(),
	}
	st.GameTime = GameTime(st.Tick, s.timeline.Interval())
	s.timeline.Do(func(scheduler.Scope) {
		st.Wallet = s.player.Wallet.Amount()
		st.Machines = len(s.machines)
		st.Inventory = s.player.Inventory.Count()
	})
	return st
}

// ParsePosition reads a "row:col" position.
func ParsePosition(s string) (production.Position, error) {
	var p production.Position
	if _, err := fmt.Sscanf(s, "%d:%d", &p.Row, &p.Col); err != nil {
		return p, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return p, nil
}
