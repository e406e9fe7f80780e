// Package inventory provides the capacity-bounded resource store used by
// players and machines.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/forge-factory/internal/catalog"
)

var (
	// ErrNotFound is returned by Remove when the item is absent or held in
	// a smaller quantity than requested.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidQuantity is returned by Add for negative quantities. It
	// indicates a caller bug.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Unbounded is the capacity of an "infinite" inventory.
const Unbounded = math.MaxInt

// Inventory maps items to strictly positive quantities. Capacity is
// advisory: Add never refuses on capacity, callers check Free first.
type Inventory struct {
	items    map[*catalog.Item]int
	capacity int
	count    int
}

// New creates an empty inventory holding at most capacity units.
func New(capacity int) *Inventory {
	return &Inventory{
		items:    make(map[*catalog.Item]int),
		capacity: capacity,
	}
}

// NewUnbounded creates an inventory with the maximum representable capacity.
func NewUnbounded() *Inventory {
	return New(Unbounded)
}

// Add stores quantity more units of item. A stored quantity that would
// overflow saturates at math.MaxInt.
func (inv *Inventory) Add(item *catalog.Item, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: add %d %s", ErrInvalidQuantity, quantity, item)
	}
	if quantity == 0 {
		return nil
	}
	next := inv.items[item] + quantity
	if next < 0 {
		next = math.MaxInt
	}
	inv.items[item] = next
	inv.count += quantity
	return nil
}

// Remove takes quantity units of item out. Negative quantities are rejected
// with ErrInvalidQuantity. The inventory is unchanged on error.
func (inv *Inventory) Remove(item *catalog.Item, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: remove %d %s", ErrInvalidQuantity, quantity, item)
	}
	held, ok := inv.items[item]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	if held < quantity {
		return fmt.Errorf("%w: %s: have %d, need %d", ErrNotFound, item, held, quantity)
	}
	held -= quantity
	inv.count -= quantity
	if held == 0 {
		delete(inv.items, item)
	} else {
		inv.items[item] = held
	}
	return nil
}

// QuantityOf returns the held quantity of item, 0 if absent.
func (inv *Inventory) QuantityOf(item *catalog.Item) int {
	return inv.items[item]
}

// Has reports whether at least quantity units of item are held.
func (inv *Inventory) Has(item *catalog.Item, quantity int) bool {
	return inv.items[item] >= quantity
}

// IncreaseCapacity grows the capacity by delta. Capacity never shrinks.
func (inv *Inventory) IncreaseCapacity(delta int) {
	if delta <= 0 {
		return
	}
	next := inv.capacity + delta
	if next < inv.capacity {
		next = Unbounded
	}
	inv.capacity = next
}

// Capacity returns the maximum number of units the inventory should hold.
func (inv *Inventory) Capacity() int { return inv.capacity }

// Count returns the total number of units held.
func (inv *Inventory) Count() int { return inv.count }

// Free returns the remaining headroom, never negative.
func (inv *Inventory) Free() int {
	if inv.count >= inv.capacity {
		return 0
	}
	return inv.capacity - inv.count
}

// Len returns the number of distinct items held.
func (inv *Inventory) Len() int { return len(inv.items) }

// Entry is one (item, quantity) pair of an inventory listing.
type Entry struct {
	Item     *catalog.Item
	Quantity int
}

// Entries lists the content ordered by item ID.
func (inv *Inventory) Entries() []Entry {
	out := make([]Entry, 0, len(inv.items))
	for it, qty := range inv.items {
		out = append(out, Entry{Item: it, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// Clone returns an independent copy.
func (inv *Inventory) Clone() *Inventory {
	out := &Inventory{
		items:    make(map[*catalog.Item]int, len(inv.items)),
		capacity: inv.capacity,
		count:    inv.count,
	}
	for it, qty := range inv.items {
		out.items[it] = qty
	}
	return out
}

// Clear removes every item. Capacity is kept.
func (inv *Inventory) Clear() {
	inv.items = make(map[*catalog.Item]int)
	inv.count = 0
}

func (inv *Inventory) String() string {
	return fmt.Sprintf("Inventory(%d/%d, %d kinds)", inv.count, inv.capacity, len(inv.items))
}
