package production

import (
	"math"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
)

// Kind tells recipe-driven machines from resource-driven ones.
type Kind int

const (
	KindFactory Kind = iota
	KindHarvester
)

func (k Kind) String() string {
	switch k {
	case KindFactory:
		return "factory"
	case KindHarvester:
		return "harvester"
	}
	return "unknown"
}

// IdleDelay is the cycle length, in seconds, of a machine with nothing
// assigned.
const IdleDelay = 1.0

// Program is what a machine produces: a recipe for factories, a harvestable
// resource for harvesters. The unused field is nil.
type Program struct {
	Kind     Kind
	Recipe   *catalog.Recipe
	Resource *catalog.Item
}

// Assigned reports whether the program has something to produce.
func (p Program) Assigned() bool {
	if p.Kind == KindFactory {
		return p.Recipe != nil
	}
	return p.Resource != nil
}

// BaseTime returns the unmodified cycle length in seconds.
func (p Program) BaseTime() float64 {
	switch {
	case p.Kind == KindFactory && p.Recipe != nil:
		return float64(p.Recipe.Time)
	case p.Kind == KindHarvester && p.Resource != nil:
		return float64(max(p.Resource.HarvestDuration, p.Resource.RecoveryDelay))
	}
	return IdleDelay
}

// CycleTime returns the cycle length in seconds for a machine with the
// given speed bonus. Harvest cycles are whole seconds.
func (p Program) CycleTime(extraSpeed float64) float64 {
	if !p.Assigned() {
		return IdleDelay
	}
	t := (1 - extraSpeed) * p.BaseTime()
	if p.Kind == KindHarvester {
		t = math.Trunc(t)
	}
	if t < 0 {
		return 0
	}
	return t
}

// Ready reports whether one production step can run against inv.
func (p Program) Ready(inv *inventory.Inventory, durability int) bool {
	if durability <= 0 || !p.Assigned() {
		return false
	}
	if p.Kind == KindHarvester {
		return inv.Capacity()-inv.Count() >= p.Resource.Yield
	}
	r := p.Recipe
	if inv.Count()+r.ResultQuantity-r.TotalIngredients() > inv.Capacity() {
		return false
	}
	for _, ing := range r.Ingredients {
		if !inv.Has(ing.Item, ing.Quantity) {
			return false
		}
	}
	return true
}

// produce runs one production step. Callers check Ready first.
func (p Program) produce(inv *inventory.Inventory) error {
	if p.Kind == KindHarvester {
		return inv.Add(p.Resource, p.Resource.Yield)
	}
	for _, ing := range p.Recipe.Ingredients {
		if err := inv.Remove(ing.Item, ing.Quantity); err != nil {
			return err
		}
	}
	return inv.Add(p.Recipe.Result, p.Recipe.ResultQuantity)
}
