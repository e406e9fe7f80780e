package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/entropy"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/scheduler"
)

func recipeFor(t *testing.T, cat *catalog.Catalog, kind catalog.ItemKind) *catalog.Recipe {
	t.Helper()
	r, err := cat.RecipeFor(cat.MustItem(kind))
	require.NoError(t, err)
	return r
}

func TestNewMachine_Defaults(t *testing.T) {
	m := NewFactory(nil)

	assert.Equal(t, KindFactory, m.Kind())
	assert.Equal(t, DefaultDurability, m.Durability())
	assert.Equal(t, DefaultDurability, m.MaxDurability())
	assert.Equal(t, DefaultCapacity, m.Inventory().Capacity())
	assert.Zero(t, m.ExtraSpeed())
	assert.False(t, m.Fragile())
	assert.False(t, m.Breaked())
	assert.NotEqual(t, m.ID, NewFactory(nil).ID)
}

func TestFactory_CycleConsumesAndProduces(t *testing.T) {
	cat := catalog.Default()
	planks := recipeFor(t, cat, catalog.Planks)
	wood := cat.MustItem(catalog.Wood)

	m := NewFactory(planks)
	require.NoError(t, m.Inventory().Add(wood, 2))

	r := m.Cycle()
	assert.True(t, r.Produced)
	assert.Equal(t, 1, m.Inventory().QuantityOf(wood))
	assert.Equal(t, 4, m.Inventory().QuantityOf(planks.Result))
	assert.Equal(t, DefaultDurability-1, m.Durability())
	assert.Equal(t, float64(planks.Time), r.Delay)
}

func TestFactory_IdlesWithoutIngredients(t *testing.T) {
	cat := catalog.Default()
	m := NewFactory(recipeFor(t, cat, catalog.StoneAxe))
	require.NoError(t, m.Inventory().Add(cat.MustItem(catalog.Wood), 2))

	r := m.Cycle()
	assert.False(t, r.Produced)
	assert.Equal(t, DefaultDurability, m.Durability())
	assert.Equal(t, 2, m.Inventory().Count())
}

func TestFactory_IdlesWhenOutputWouldOverflow(t *testing.T) {
	cat := catalog.Default()
	planks := recipeFor(t, cat, catalog.Planks)
	wood := cat.MustItem(catalog.Wood)

	m := NewFactory(planks)
	// 200 + 4 - 1 > 200
	require.NoError(t, m.Inventory().Add(wood, DefaultCapacity))

	assert.False(t, m.Cycle().Produced)
	assert.Equal(t, DefaultCapacity, m.Inventory().QuantityOf(wood))
}

func TestFactory_IdlesAtZeroDurability(t *testing.T) {
	cat := catalog.Default()
	ingot := recipeFor(t, cat, catalog.Ingot)
	steel := cat.MustItem(catalog.Steel)

	m, err := Restore(State{
		Program:    Program{Kind: KindFactory, Recipe: ingot},
		Items:      []inventory.Entry{{Item: steel, Quantity: 5}},
		Durability: 1,
	})
	require.NoError(t, err)

	assert.True(t, m.Cycle().Produced)
	assert.Equal(t, 0, m.Durability())
	assert.False(t, m.Cycle().Produced)
	assert.Equal(t, 4, m.Inventory().QuantityOf(steel))

	assert.True(t, m.Maintain())
	assert.Equal(t, DefaultDurability, m.Durability())
	assert.False(t, m.Maintain(), "already at full durability")
}

func TestHarvester_Cycle(t *testing.T) {
	cat := catalog.Default()
	stone := cat.MustItem(catalog.Stone)

	m := NewHarvester(stone)
	r := m.Cycle()
	assert.True(t, r.Produced)
	assert.Equal(t, stone.Yield, m.Inventory().QuantityOf(stone))
	assert.Equal(t, DefaultDurability-1, m.Durability())
	assert.Equal(t, float64(max(stone.HarvestDuration, stone.RecoveryDelay)), r.Delay)
}

func TestHarvester_StopsWhenFull(t *testing.T) {
	cat := catalog.Default()
	stone := cat.MustItem(catalog.Stone)

	m := NewHarvester(stone)
	require.NoError(t, m.Inventory().Add(stone, DefaultCapacity-stone.Yield))
	assert.True(t, m.Cycle().Produced, "exactly fills the inventory")
	assert.Equal(t, DefaultCapacity, m.Inventory().Count())
	assert.False(t, m.Cycle().Produced)
}

func TestHarvester_WithoutResourceIdles(t *testing.T) {
	m := NewHarvester(nil)
	r := m.Cycle()
	assert.False(t, r.Produced)
	assert.Equal(t, IdleDelay, r.Delay)
	assert.Equal(t, DefaultDurability, m.Durability())
}

func TestEffectiveTime_SpeedBonus(t *testing.T) {
	cat := catalog.Default()
	steelBlock := recipeFor(t, cat, catalog.SteelBlock)
	steel := cat.MustItem(catalog.Steel)

	f := NewFactory(steelBlock, WithBonuses(map[Bonus]int{BonusSpeed: 2}))
	assert.InDelta(t, 8.0, f.EffectiveTime(), 1e-9)

	// Harvest cycles truncate to whole seconds: 0.8 * 5 = 4.
	h := NewHarvester(steel, WithBonuses(map[Bonus]int{BonusSpeed: 2}))
	assert.Equal(t, 4.0, h.EffectiveTime())

	h = NewHarvester(steel, WithBonuses(map[Bonus]int{BonusSpeed: 1}))
	assert.Equal(t, 4.0, h.EffectiveTime(), "0.9 * 5 truncates to 4")
}

func TestSetProgram_WrongKind(t *testing.T) {
	cat := catalog.Default()
	f := NewFactory(nil)
	h := NewHarvester(nil)

	assert.ErrorIs(t, f.SetResource(cat.MustItem(catalog.Wood)), ErrWrongKind)
	assert.ErrorIs(t, h.SetRecipe(recipeFor(t, cat, catalog.Pie)), ErrWrongKind)

	pie := recipeFor(t, cat, catalog.Pie)
	require.NoError(t, f.SetRecipe(pie))
	assert.Same(t, pie, f.Recipe())
	require.NoError(t, h.SetResource(cat.MustItem(catalog.Wood)))
	assert.Equal(t, catalog.Wood, h.Resource().Kind)
}

func TestBreakage_NonFragileNeverBreaks(t *testing.T) {
	m := NewHarvester(nil, WithRandom(entropy.NewSequence(0)))
	for i := 0; i < 1000; i++ {
		m.Cycle()
	}
	assert.False(t, m.Breaked())
}

func TestBreakage_BrokenMachineStopsUntilRepaired(t *testing.T) {
	cat := catalog.Default()
	wood := cat.MustItem(catalog.Wood)
	m := NewHarvester(wood,
		WithBonuses(map[Bonus]int{BonusFragile: 1}),
		WithRandom(entropy.NewSequence(0.05, 0.9)),
	)
	require.True(t, m.Fragile())

	r := m.Cycle()
	assert.True(t, r.Broke)
	assert.False(t, r.Produced)
	assert.True(t, m.Breaked())

	// No roll while broken, no production either.
	r = m.Cycle()
	assert.False(t, r.Broke)
	assert.False(t, r.Produced)

	m.Repair()
	assert.False(t, m.Breaked())
	assert.True(t, m.Fragile(), "fragility is permanent")
	r = m.Cycle()
	assert.False(t, r.Broke, "0.9 roll keeps it running")
	assert.True(t, r.Produced)
}

func TestBreakage_Probability(t *testing.T) {
	const trials = 20000
	src := entropy.NewSeeded(7)
	broke := 0
	for i := 0; i < trials; i++ {
		m := NewFactory(nil, WithBonuses(map[Bonus]int{BonusFragile: 1}), WithRandom(src))
		if m.Cycle().Broke {
			broke++
		}
	}
	assert.InDelta(t, DefaultBreakChance, float64(broke)/trials, 0.01)
}

func TestBreakage_ConfiguredChance(t *testing.T) {
	m := NewFactory(nil,
		WithBonuses(map[Bonus]int{BonusFragile: 1}),
		WithBreakChance(0),
		WithRandom(entropy.NewSequence(0)),
	)
	m.Cycle()
	assert.False(t, m.Breaked())
}

func TestRun_RearmsWithCycleTime(t *testing.T) {
	cat := catalog.Default()
	wood := cat.MustItem(catalog.Wood)
	m := NewHarvester(wood)

	var seen []CycleResult
	m.OnCycle = func(_ *Machine, r CycleResult) { seen = append(seen, r) }

	tl := scheduler.NewTimeline(scheduler.DefaultInterval)
	tl.Submit(tl.NewTask(0, m))
	for i := 0; i < 20; i++ {
		tl.Step()
	}

	// Wood: 1s cycle = 8 ticks, first firing on step 2, then every 9 steps.
	require.Len(t, seen, 3)
	assert.Equal(t, 3, m.Inventory().QuantityOf(wood))
	for _, r := range seen {
		assert.Equal(t, 1.0, r.Delay)
	}
	assert.Equal(t, 1, tl.Len(), "machine task stays scheduled")
}

func TestVersatile_FirstConfigurationOnly(t *testing.T) {
	m := NewFactory(nil)
	assert.True(t, m.Versatile())
	assert.False(t, m.Versatile())

	require.NoError(t, m.Grant(BonusVersatile))
	assert.True(t, m.Versatile())
	assert.True(t, m.Versatile())
}

func TestWithdrawDeposit(t *testing.T) {
	cat := catalog.Default()
	apple := cat.MustItem(catalog.Apple)
	player := inventory.NewUnbounded()
	require.NoError(t, player.Add(apple, 300))

	m := NewFactory(nil)
	require.NoError(t, m.Deposit(apple, 150, player))
	assert.Equal(t, 150, m.Inventory().QuantityOf(apple))
	assert.Equal(t, 150, player.QuantityOf(apple))

	assert.ErrorIs(t, m.Deposit(apple, 51, player), ErrMachineFull)
	assert.Equal(t, 150, player.QuantityOf(apple), "failed deposit keeps player stock")

	require.NoError(t, m.Withdraw(apple, 100, player))
	assert.Equal(t, 50, m.Inventory().QuantityOf(apple))
	assert.Equal(t, 250, player.QuantityOf(apple))

	assert.ErrorIs(t, m.Withdraw(apple, 51, player), inventory.ErrNotFound)
	assert.ErrorIs(t, m.Deposit(cat.MustItem(catalog.House), 1, player), inventory.ErrNotFound)
}

func TestWithdraw_NegativeQuantity(t *testing.T) {
	cat := catalog.Default()
	wood := cat.MustItem(catalog.Wood)
	player := inventory.NewUnbounded()

	m := NewHarvester(wood)
	require.NoError(t, m.Inventory().Add(wood, 1))

	assert.ErrorIs(t, m.Withdraw(wood, -500, player), inventory.ErrInvalidQuantity)
	assert.Equal(t, 1, m.Inventory().QuantityOf(wood))
	assert.Equal(t, 1, m.Inventory().Count())
	assert.Equal(t, 0, player.QuantityOf(wood))
}
