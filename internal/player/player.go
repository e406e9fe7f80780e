// Package player holds the player's stock and money and the player-side
// crafting and market flows.
package player

import (
	"errors"
	"fmt"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/scheduler"
)

var (
	ErrNotEnoughMoney     = errors.New("not enough money")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingIngredients = errors.New("missing ingredients")
)

// Wallet is the player's money.
type Wallet struct {
	amount int
}

// Amount returns the current balance.
func (w *Wallet) Amount() int { return w.amount }

// Set overwrites the balance. Used when restoring a save.
func (w *Wallet) Set(amount int) { w.amount = amount }

// CanAfford reports whether price can be paid.
func (w *Wallet) CanAfford(price int) bool { return price <= w.amount }

// Add credits amount.
func (w *Wallet) Add(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	w.amount += amount
	return nil
}

// Remove debits amount, failing without change if the balance is too low.
func (w *Wallet) Remove(amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if w.amount-amount < 0 {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughMoney, w.amount, amount)
	}
	w.amount -= amount
	return nil
}

// Player is the single player of a session.
type Player struct {
	Inventory *inventory.Inventory
	Wallet    Wallet
}

// New creates a player with an unbounded inventory and an empty wallet.
func New() *Player {
	return &Player{Inventory: inventory.NewUnbounded()}
}

// CraftQueue accepts player crafts. Both scheduler.Timeline and
// scheduler.Scope satisfy it.
type CraftQueue interface {
	SubmitCraft(result *catalog.Item, seconds float64, onComplete scheduler.Action)
}

// CanCraft reports whether the player holds every ingredient of r.
func (p *Player) CanCraft(r *catalog.Recipe) bool {
	for _, ing := range r.Ingredients {
		if !p.Inventory.Has(ing.Item, ing.Quantity) {
			return false
		}
	}
	return true
}

// Craft takes r's ingredients now and queues the craft. The result is
// credited to the player when the craft completes.
func (p *Player) Craft(q CraftQueue, r *catalog.Recipe) error {
	if !p.CanCraft(r) {
		return fmt.Errorf("%w: %s", ErrMissingIngredients, r)
	}
	for _, ing := range r.Ingredients {
		if err := p.Inventory.Remove(ing.Item, ing.Quantity); err != nil {
			return err
		}
	}
	q.SubmitCraft(r.Result, float64(r.Time), craftResult{inv: p.Inventory, recipe: r})
	return nil
}

// craftResult credits a finished craft.
type craftResult struct {
	inv    *inventory.Inventory
	recipe *catalog.Recipe
}

func (c craftResult) Run(scheduler.Scope) scheduler.Outcome {
	_ = c.inv.Add(c.recipe.Result, c.recipe.ResultQuantity)
	return scheduler.Done
}

// WithRefunds returns a copy of the player's inventory with the ingredients
// of every pending craft result given back. The live inventory is not
// touched, so crafts keep running after a save.
func (p *Player) WithRefunds(cat *catalog.Catalog, pending []*catalog.Item) (*inventory.Inventory, error) {
	out := p.Inventory.Clone()
	for _, result := range pending {
		r, err := cat.RecipeFor(result)
		if err != nil {
			return nil, err
		}
		for _, ing := range r.Ingredients {
			if err := out.Add(ing.Item, ing.Quantity); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
