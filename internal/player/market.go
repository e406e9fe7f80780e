package player

import (
	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/production"
)

// Machine prices.
const (
	MachineBasePrice  = 150
	MachineBonusPrice = 100
)

// Buy purchases quantity units of item at its buy price.
func (p *Player) Buy(item *catalog.Item, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	if err := p.Wallet.Remove(item.Buy * quantity); err != nil {
		return err
	}
	return p.Inventory.Add(item, quantity)
}

// Sell sells quantity units of item at its sell price.
func (p *Player) Sell(item *catalog.Item, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}
	if err := p.Inventory.Remove(item, quantity); err != nil {
		return err
	}
	return p.Wallet.Add(item.Sell * quantity)
}

// MachinePrice returns what a new machine costs. A starting bonus adds to
// the base price except FRAGILE, which halves a factory's price.
func MachinePrice(kind production.Kind, bonus production.Bonus) int {
	switch {
	case bonus == "":
		return MachineBasePrice
	case kind == production.KindFactory && bonus == production.BonusFragile:
		return MachineBasePrice / 2
	}
	return MachineBasePrice + MachineBonusPrice
}

// Pay debits a machine purchase, upgrade or maintenance.
func (p *Player) Pay(price int) error {
	return p.Wallet.Remove(price)
}
