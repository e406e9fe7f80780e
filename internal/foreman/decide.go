package foreman

import (
	"fmt"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/engine"
)

// Action types, named after the admin endpoint they call.
const (
	ActionRepair   = "repair"
	ActionMaintain = "maintain"
	ActionWithdraw = "withdraw"
)

// DefaultMaxActions caps how much a single cycle does.
const DefaultMaxActions = 8

// Action is one admin call on one machine.
type Action struct {
	Type     string           `json:"type"`
	Row      int              `json:"row"`
	Col      int              `json:"col"`
	Item     catalog.ItemKind `json:"item,omitempty"`
	Quantity int              `json:"quantity,omitempty"`
	Reason   string           `json:"-"`
}

// Key identifies the action target for memory lookups.
func (a Action) Key() string {
	return fmt.Sprintf("%s@%d:%d", a.Type, a.Row, a.Col)
}

func actionOn(kind string, m engine.MachineView, reason string) Action {
	return Action{Type: kind, Row: m.Position.Row, Col: m.Position.Col, Reason: reason}
}

// Decide picks at most maxActions actions, most urgent first: free repairs,
// then emptying full machines, then paid maintenance while the wallet
// covers it. Actions that failed in the previous cycle are skipped once.
func Decide(h *Health, mem *Memory, maxActions int) []Action {
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}
	var out []Action
	add := func(a Action) bool {
		if len(out) >= maxActions {
			return false
		}
		if mem != nil && mem.FailedLastCycle(a) {
			return true
		}
		out = append(out, a)
		return true
	}

	for _, m := range h.Broken {
		if !add(actionOn(ActionRepair, m, "broken")) {
			return out
		}
	}

	for _, m := range h.Full {
		if m.Output == "" {
			continue
		}
		a := actionOn(ActionWithdraw, m, "inventory nearly full")
		a.Item = m.Output
		for _, c := range m.Inventory.Items {
			if c.Item == m.Output {
				a.Quantity = c.Quantity
			}
		}
		if a.Quantity == 0 {
			continue
		}
		if !add(a) {
			return out
		}
	}

	paid := 0
	for _, m := range h.WornOut {
		if !h.canAfford(paid + 1) {
			break
		}
		before := len(out)
		if !add(actionOn(ActionMaintain, m, fmt.Sprintf("durability %d/%d", m.Durability, m.MaxDurability))) {
			return out
		}
		if len(out) > before {
			paid++
		}
	}
	return out
}
