package persistence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/production"
)

func TestInventory_RoundTripEveryItem(t *testing.T) {
	cat := catalog.Default()
	inv := inventory.NewUnbounded()
	for i, it := range cat.Items() {
		require.NoError(t, inv.Add(it, i*7+1))
	}

	got := inventory.NewUnbounded()
	require.NoError(t, RestoreInventory(cat, EncodeInventory(inv), got))

	for _, it := range cat.Items() {
		assert.Equal(t, inv.QuantityOf(it), got.QuantityOf(it), it.Kind)
	}
	assert.Equal(t, inv.Count(), got.Count())
}

func TestInventory_Format(t *testing.T) {
	cat := catalog.Default()
	inv := inventory.New(10)
	require.NoError(t, inv.Add(cat.MustItem(catalog.Stone), 3))
	require.NoError(t, inv.Add(cat.MustItem(catalog.Wood), 2))

	assert.Equal(t, "1:2/3:3/", EncodeInventory(inv))
	assert.Equal(t, "", EncodeInventory(inventory.New(10)))
}

func TestDecodeInventory_Malformed(t *testing.T) {
	cat := catalog.Default()
	for _, s := range []string{"1", "x:2/", "1:y/", "99:1/", "1:0/", "1:-3/"} {
		_, err := DecodeInventory(cat, s)
		assert.ErrorIs(t, err, ErrInvalidSaveFormat, s)
	}
}

func TestMachine_FactoryFormat(t *testing.T) {
	cat := catalog.Default()
	ingot, err := cat.Recipe(1)
	require.NoError(t, err)

	m := production.NewFactory(ingot, production.WithBonuses(map[production.Bonus]int{production.BonusSpeed: 2}))
	require.NoError(t, m.Inventory().Add(cat.MustItem(catalog.Steel), 4))

	got := EncodeMachine(cat, MachineRecord{Position: production.Position{Row: 3, Col: 7}, Machine: m})
	assert.Equal(t, "3:7,2:4/,200,false,SPEED:2/, ,1", got)
}

func TestMachine_HarvesterFormat(t *testing.T) {
	cat := catalog.Default()

	m := production.NewHarvester(nil)
	got := EncodeMachine(cat, MachineRecord{Position: production.Position{Row: 0, Col: 1}, Machine: m})
	assert.Equal(t, "0:1,,200,false, ,-1", got)

	rec, err := DecodeMachine(cat, production.KindHarvester, got)
	require.NoError(t, err)
	assert.Nil(t, rec.Machine.Resource())
}

func TestMachine_RoundTrip(t *testing.T) {
	cat := catalog.Default()
	apple := cat.MustItem(catalog.Apple)
	berries := cat.MustItem(catalog.Berries)
	pie, err := cat.RecipeFor(cat.MustItem(catalog.Pie))
	require.NoError(t, err)

	f := production.NewFactory(pie, production.WithBonuses(map[production.Bonus]int{
		production.BonusXL:      2,
		production.BonusFragile: 1,
	}))
	require.NoError(t, f.Inventory().Add(apple, 250))
	f.Cycle()

	h := production.NewHarvester(berries, production.WithBonuses(map[production.Bonus]int{production.BonusUnbreaking: 3}))
	h.Cycle()

	for _, m := range []*production.Machine{f, h} {
		pos := production.Position{Row: 4, Col: 9}
		rec, err := DecodeMachine(cat, m.Kind(), EncodeMachine(cat, MachineRecord{Position: pos, Machine: m}))
		require.NoError(t, err)

		assert.Equal(t, pos, rec.Position)
		assert.Equal(t, m.Snapshot(), rec.Machine.Snapshot())
		assert.Equal(t, m.Inventory().Capacity(), rec.Machine.Inventory().Capacity())
		assert.Equal(t, m.MaxDurability(), rec.Machine.MaxDurability())
		assert.Equal(t, m.Fragile(), rec.Machine.Fragile())
	}
}

func TestDecodeMachine_Malformed(t *testing.T) {
	cat := catalog.Default()
	cases := map[string]struct {
		kind   production.Kind
		record string
	}{
		"too few fields":   {production.KindFactory, "1:1,,200,false, ,"},
		"harvester extra":  {production.KindHarvester, "1:1,,200,false, , ,0"},
		"bad position":     {production.KindHarvester, "11,,200,false, ,0"},
		"bad durability":   {production.KindHarvester, "1:1,,lots,false, ,0"},
		"bad broken flag":  {production.KindHarvester, "1:1,,200,maybe, ,0"},
		"unknown bonus":    {production.KindHarvester, "1:1,,200,false,TURBO:1/,0"},
		"bonus over cap":   {production.KindHarvester, "1:1,,200,false,SPEED:6/,0"},
		"unknown recipe":   {production.KindFactory, "1:1,,200,false, , ,42"},
		"unknown resource": {production.KindHarvester, "1:1,,200,false, ,42"},
		"missing spacer":   {production.KindFactory, "1:1,,200,false, ,x,0"},
		"bad item":         {production.KindFactory, "1:1,77:1/,200,false, , ,0"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMachine(cat, tc.kind, tc.record)
			assert.ErrorIs(t, err, ErrInvalidSaveFormat)
		})
	}
}

func sampleGame(t *testing.T, cat *catalog.Catalog) *Game {
	t.Helper()
	inv := inventory.NewUnbounded()
	require.NoError(t, inv.Add(cat.MustItem(catalog.Wood), 12))
	require.NoError(t, inv.Add(cat.MustItem(catalog.House), 1))

	planks, err := cat.RecipeFor(cat.MustItem(catalog.Planks))
	require.NoError(t, err)

	return &Game{
		Wallet:    345,
		Inventory: inv,
		Machines: []MachineRecord{
			{Position: production.Position{Row: 5, Col: 2}, Machine: production.NewHarvester(cat.MustItem(catalog.Stone))},
			{Position: production.Position{Row: 1, Col: 8}, Machine: production.NewFactory(planks)},
			{Position: production.Position{Row: 1, Col: 3}, Machine: production.NewHarvester(nil)},
		},
	}
}

func TestGame_RoundTrip(t *testing.T) {
	cat := catalog.Default()
	g := sampleGame(t, cat)

	text := EncodeGame(cat, g)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "forgesim/1 "+cat.Digest(), lines[0])
	assert.Equal(t, "345", lines[1])
	assert.True(t, strings.HasSuffix(lines[3], "; "))
	assert.True(t, strings.HasPrefix(lines[4], "1:3,"), "harvesters in position order")

	got, err := Decoder{Catalog: cat, Strict: true}.Game(text)
	require.NoError(t, err)

	assert.Equal(t, 345, got.Wallet)
	assert.Equal(t, g.Inventory.Entries(), got.Inventory.Entries())
	require.Len(t, got.Machines, 3)
	assert.Equal(t, production.KindFactory, got.Machines[0].Machine.Kind())
	assert.Equal(t, production.Position{Row: 1, Col: 8}, got.Machines[0].Position)
	assert.Equal(t, production.Position{Row: 1, Col: 3}, got.Machines[1].Position)
	assert.Equal(t, production.Position{Row: 5, Col: 2}, got.Machines[2].Position)
	assert.Empty(t, got.Skipped)

	assert.Equal(t, text, EncodeGame(cat, got), "re-encoding is stable")
}

func TestGame_EmptySave(t *testing.T) {
	cat := catalog.Default()
	text := EncodeGame(cat, &Game{Inventory: inventory.NewUnbounded()})

	got, err := Decoder{Catalog: cat}.Game(text)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Wallet)
	assert.Equal(t, 0, got.Inventory.Count())
	assert.Empty(t, got.Machines)
}

func TestGame_LenientSkipsBadMachines(t *testing.T) {
	cat := catalog.Default()
	text := EncodeGame(cat, sampleGame(t, cat))
	lines := strings.Split(text, "\n")
	lines[3] = "9:9,,200,false, , ,999;" + lines[3]
	text = strings.Join(lines, "\n")

	got, err := Decoder{Catalog: cat}.Game(text)
	require.NoError(t, err)
	assert.Len(t, got.Machines, 3)
	require.Len(t, got.Skipped, 1)
	assert.ErrorIs(t, got.Skipped[0], ErrInvalidSaveFormat)

	_, err = Decoder{Catalog: cat, Strict: true}.Game(text)
	assert.ErrorIs(t, err, ErrInvalidSaveFormat)
}

func TestGame_RepeatedPosition(t *testing.T) {
	cat := catalog.Default()
	text := EncodeGame(cat, sampleGame(t, cat))
	lines := strings.Split(text, "\n")
	first, _, ok := strings.Cut(lines[3], recordSep)
	require.True(t, ok)
	lines[3] = first + recordSep + lines[3]
	text = strings.Join(lines, "\n")

	got, err := Decoder{Catalog: cat}.Game(text)
	require.NoError(t, err)
	assert.Len(t, got.Machines, 3)
	require.Len(t, got.Skipped, 1)
	assert.ErrorIs(t, got.Skipped[0], ErrInvalidSaveFormat)

	_, err = Decoder{Catalog: cat, Strict: true}.Game(text)
	assert.ErrorIs(t, err, ErrInvalidSaveFormat)
}

func TestGame_FatalErrors(t *testing.T) {
	cat := catalog.Default()
	text := EncodeGame(cat, sampleGame(t, cat))
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	replace := func(i int, s string) string {
		cp := append([]string(nil), lines...)
		cp[i] = s
		return strings.Join(cp, "\n")
	}

	_, err := Decoder{Catalog: cat}.Game(strings.Join(lines[:4], "\n"))
	assert.ErrorIs(t, err, ErrInvalidSaveFormat, "missing line")

	_, err = Decoder{Catalog: cat}.Game(replace(0, "savegame 1"))
	assert.ErrorIs(t, err, ErrInvalidSaveFormat, "bad header")

	_, err = Decoder{Catalog: cat}.Game(replace(0, "forgesim/1 deadbeef"))
	assert.ErrorIs(t, err, ErrCatalogMismatch)

	_, err = Decoder{Catalog: cat}.Game(replace(1, "rich"))
	assert.ErrorIs(t, err, ErrInvalidSaveFormat, "bad wallet")

	_, err = Decoder{Catalog: cat}.Game(replace(2, "1:x/"))
	assert.ErrorIs(t, err, ErrInvalidSaveFormat, "bad inventory")
}
