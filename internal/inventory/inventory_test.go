package inventory

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/forge-factory/internal/catalog"
)

func TestInventory_AddRemoveScenario(t *testing.T) {
	cat := catalog.Default()
	wood := cat.MustItem(catalog.Wood)
	inv := New(10)

	require.NoError(t, inv.Add(wood, 5))
	require.NoError(t, inv.Add(wood, 3))
	assert.Equal(t, 8, inv.QuantityOf(wood))
	assert.Equal(t, 8, inv.Count())

	err := inv.Remove(wood, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 8, inv.QuantityOf(wood))
	assert.Equal(t, 8, inv.Count())

	require.NoError(t, inv.Remove(wood, 8))
	assert.Equal(t, 0, inv.QuantityOf(wood))
	assert.Equal(t, 0, inv.Len())
	assert.Equal(t, 0, inv.Count())
}

func TestInventory_RemoveAbsent(t *testing.T) {
	cat := catalog.Default()
	inv := New(10)

	err := inv.Remove(cat.MustItem(catalog.Stone), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, inv.Count())
}

func TestInventory_RemoveNegative(t *testing.T) {
	cat := catalog.Default()
	wood := cat.MustItem(catalog.Wood)
	inv := New(10)
	require.NoError(t, inv.Add(wood, 1))

	err := inv.Remove(wood, -5)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 1, inv.QuantityOf(wood))
	assert.Equal(t, 1, inv.Count())
}

func TestInventory_AddNegative(t *testing.T) {
	cat := catalog.Default()
	inv := New(10)

	err := inv.Add(cat.MustItem(catalog.Stone), -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, inv.Len())
}

func TestInventory_AddIgnoresCapacity(t *testing.T) {
	cat := catalog.Default()
	inv := New(2)

	require.NoError(t, inv.Add(cat.MustItem(catalog.Apple), 5))
	assert.Equal(t, 5, inv.Count())
	assert.Equal(t, 0, inv.Free())
}

func TestInventory_AddSaturatesOnOverflow(t *testing.T) {
	cat := catalog.Default()
	apple := cat.MustItem(catalog.Apple)
	inv := NewUnbounded()

	require.NoError(t, inv.Add(apple, math.MaxInt-1))
	require.NoError(t, inv.Add(apple, 10))
	assert.Equal(t, math.MaxInt, inv.QuantityOf(apple))
}

func TestInventory_IncreaseCapacity(t *testing.T) {
	inv := New(200)
	inv.IncreaseCapacity(100)
	assert.Equal(t, 300, inv.Capacity())

	inv.IncreaseCapacity(-50)
	assert.Equal(t, 300, inv.Capacity())

	unbounded := NewUnbounded()
	unbounded.IncreaseCapacity(1)
	assert.Equal(t, Unbounded, unbounded.Capacity())
}

func TestInventory_CountMatchesSum(t *testing.T) {
	cat := catalog.Default()
	items := cat.Items()
	inv := New(1000)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		it := items[rng.Intn(len(items))]
		if rng.Intn(2) == 0 {
			require.NoError(t, inv.Add(it, rng.Intn(5)))
			continue
		}
		held := inv.QuantityOf(it)
		qty := rng.Intn(held + 3)
		before := inv.Count()
		err := inv.Remove(it, qty)
		if qty > held || held == 0 {
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, before, inv.Count())
			assert.Equal(t, held, inv.QuantityOf(it))
		} else {
			assert.NoError(t, err)
		}

		sum := 0
		for _, e := range inv.Entries() {
			assert.Positive(t, e.Quantity)
			sum += e.Quantity
		}
		assert.Equal(t, sum, inv.Count())
	}
}

func TestInventory_EntriesOrdered(t *testing.T) {
	cat := catalog.Default()
	inv := New(100)
	require.NoError(t, inv.Add(cat.MustItem(catalog.Berries), 1))
	require.NoError(t, inv.Add(cat.MustItem(catalog.Apple), 2))
	require.NoError(t, inv.Add(cat.MustItem(catalog.Stone), 3))

	entries := inv.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, catalog.Apple, entries[0].Item.Kind)
	assert.Equal(t, catalog.Stone, entries[1].Item.Kind)
	assert.Equal(t, catalog.Berries, entries[2].Item.Kind)
}

func TestInventory_CloneIsIndependent(t *testing.T) {
	cat := catalog.Default()
	wood := cat.MustItem(catalog.Wood)
	inv := New(50)
	require.NoError(t, inv.Add(wood, 10))

	cp := inv.Clone()
	require.NoError(t, cp.Add(wood, 5))

	assert.Equal(t, 10, inv.QuantityOf(wood))
	assert.Equal(t, 15, cp.QuantityOf(wood))
	assert.Equal(t, inv.Capacity(), cp.Capacity())
}
