package persistence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/production"
)

// Save text layout, one line each:
//
//	forgesim/1 <catalog digest>
//	<wallet>
//	<id:qty/...>                       player inventory
//	<factory record>;...;<space>
//	<harvester record>;...;<space>
//
// A machine record is row:col,<inventory>,<durability>,<breaked>,<bonuses>
// followed by " ,<recipe index>" for factories or "<resource index>" for
// harvesters (-1 when none is assigned). Bonuses are NAME:n/... or a single
// space when the machine has none.
const (
	formatVersion = "forgesim/1"

	recordSep   = ";"
	fieldSep    = ","
	entrySep    = "/"
	pairSep     = ":"
	emptyField  = " "
	lineCount   = 5
	factoryLen  = 7
	harvestLen  = 6
	noResource  = -1
	headerField = 2
)

var (
	// ErrInvalidSaveFormat marks a malformed save record.
	ErrInvalidSaveFormat = errors.New("invalid save format")
	// ErrCatalogMismatch is returned when a save was written against a
	// different catalog version.
	ErrCatalogMismatch = errors.New("save was written for a different catalog")
)

func invalid(what string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSaveFormat, fmt.Sprintf(what, args...))
}

// EncodeInventory writes inv as id:qty/ pairs in ID order.
func EncodeInventory(inv *inventory.Inventory) string {
	var b strings.Builder
	for _, e := range inv.Entries() {
		fmt.Fprintf(&b, "%d%s%d%s", e.Item.ID, pairSep, e.Quantity, entrySep)
	}
	return b.String()
}

// DecodeInventory parses the output of EncodeInventory.
func DecodeInventory(cat *catalog.Catalog, s string) ([]inventory.Entry, error) {
	var out []inventory.Entry
	for _, pair := range strings.Split(s, entrySep) {
		if pair == "" {
			continue
		}
		idStr, qtyStr, ok := strings.Cut(pair, pairSep)
		if !ok {
			return nil, invalid("inventory entry %q", pair)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, invalid("inventory item id %q", idStr)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty <= 0 {
			return nil, invalid("inventory quantity %q", qtyStr)
		}
		item, err := cat.Item(catalog.ItemID(id))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSaveFormat, err)
		}
		out = append(out, inventory.Entry{Item: item, Quantity: qty})
	}
	return out, nil
}

// RestoreInventory fills inv from a saved inventory string.
func RestoreInventory(cat *catalog.Catalog, s string, inv *inventory.Inventory) error {
	entries, err := DecodeInventory(cat, s)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := inv.Add(e.Item, e.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func encodeBonuses(counts map[production.Bonus]int) string {
	var b strings.Builder
	for _, bonus := range production.Bonuses {
		if n := counts[bonus]; n > 0 {
			fmt.Fprintf(&b, "%s%s%d%s", bonus, pairSep, n, entrySep)
		}
	}
	if b.Len() == 0 {
		return emptyField
	}
	return b.String()
}

func decodeBonuses(s string) (map[production.Bonus]int, error) {
	out := make(map[production.Bonus]int)
	if s == emptyField {
		return out, nil
	}
	for _, pair := range strings.Split(s, entrySep) {
		if pair == "" {
			continue
		}
		name, nStr, ok := strings.Cut(pair, pairSep)
		if !ok {
			return nil, invalid("bonus %q", pair)
		}
		b, err := production.ParseBonus(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSaveFormat, err)
		}
		n, err := strconv.Atoi(nStr)
		if err != nil {
			return nil, invalid("bonus count %q", nStr)
		}
		out[b] = n
	}
	return out, nil
}

// MachineRecord is a placed machine.
type MachineRecord struct {
	Position production.Position
	Machine  *production.Machine
}

// EncodeMachine writes one machine record, without the record separator.
func EncodeMachine(cat *catalog.Catalog, rec MachineRecord) string {
	st := rec.Machine.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "%d%s%d", rec.Position.Row, pairSep, rec.Position.Col)

	b.WriteString(fieldSep + EncodeInventory(rec.Machine.Inventory()))
	b.WriteString(fieldSep + strconv.Itoa(st.Durability))
	b.WriteString(fieldSep + strconv.FormatBool(st.Breaked))
	b.WriteString(fieldSep + encodeBonuses(st.Bonuses))

	switch st.Program.Kind {
	case production.KindFactory:
		b.WriteString(fieldSep + emptyField + fieldSep + strconv.Itoa(recipeIndex(cat, st.Program.Recipe)))
	case production.KindHarvester:
		b.WriteString(fieldSep + strconv.Itoa(resourceIndex(cat, st.Program.Resource)))
	}
	return b.String()
}

func recipeIndex(cat *catalog.Catalog, r *catalog.Recipe) int {
	if r == nil {
		return 0
	}
	return max(cat.RecipeIndex(r), 0)
}

func resourceIndex(cat *catalog.Catalog, it *catalog.Item) int {
	if it == nil {
		return noResource
	}
	return cat.ResourceIndex(it)
}

// DecodeMachine parses one machine record of the given kind. Options are
// passed to the restored machine.
func DecodeMachine(cat *catalog.Catalog, kind production.Kind, record string, opts ...production.Option) (MachineRecord, error) {
	fields := strings.Split(record, fieldSep)
	want := factoryLen
	if kind == production.KindHarvester {
		want = harvestLen
	}
	if len(fields) != want {
		return MachineRecord{}, invalid("%s record has %d fields, want %d", kind, len(fields), want)
	}

	pos, err := decodePosition(fields[0])
	if err != nil {
		return MachineRecord{}, err
	}
	items, err := DecodeInventory(cat, fields[1])
	if err != nil {
		return MachineRecord{}, err
	}
	durability, err := strconv.Atoi(fields[2])
	if err != nil {
		return MachineRecord{}, invalid("durability %q", fields[2])
	}
	breaked, err := strconv.ParseBool(fields[3])
	if err != nil {
		return MachineRecord{}, invalid("broken flag %q", fields[3])
	}
	bonuses, err := decodeBonuses(fields[4])
	if err != nil {
		return MachineRecord{}, err
	}

	prog := production.Program{Kind: kind}
	index, err := strconv.Atoi(fields[want-1])
	if err != nil {
		return MachineRecord{}, invalid("%s program index %q", kind, fields[want-1])
	}
	switch kind {
	case production.KindFactory:
		if fields[5] != emptyField {
			return MachineRecord{}, invalid("factory spacer %q", fields[5])
		}
		if prog.Recipe, err = cat.Recipe(index); err != nil {
			return MachineRecord{}, fmt.Errorf("%w: %w", ErrInvalidSaveFormat, err)
		}
	case production.KindHarvester:
		if index != noResource {
			if prog.Resource, err = cat.Resource(index); err != nil {
				return MachineRecord{}, fmt.Errorf("%w: %w", ErrInvalidSaveFormat, err)
			}
		}
	}

	m, err := production.Restore(production.State{
		Program:    prog,
		Items:      items,
		Durability: durability,
		Breaked:    breaked,
		Bonuses:    bonuses,
	}, opts...)
	if err != nil {
		return MachineRecord{}, fmt.Errorf("%w: %w", ErrInvalidSaveFormat, err)
	}
	return MachineRecord{Position: pos, Machine: m}, nil
}

func decodePosition(s string) (production.Position, error) {
	rowStr, colStr, ok := strings.Cut(s, pairSep)
	if !ok {
		return production.Position{}, invalid("position %q", s)
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil {
		return production.Position{}, invalid("position row %q", rowStr)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil {
		return production.Position{}, invalid("position col %q", colStr)
	}
	return production.Position{Row: row, Col: col}, nil
}

// Game is the persistent state of one session.
type Game struct {
	Wallet    int
	Inventory *inventory.Inventory
	Machines  []MachineRecord

	// Skipped holds the errors of machine records dropped by a lenient decode.
	Skipped []error
}

// EncodeGame writes a full save. Machines are written in position order.
func EncodeGame(cat *catalog.Catalog, g *Game) string {
	machines := make([]MachineRecord, len(g.Machines))
	copy(machines, g.Machines)
	sort.Slice(machines, func(i, j int) bool {
		a, b := machines[i].Position, machines[j].Position
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})

	var factories, harvesters strings.Builder
	for _, rec := range machines {
		line := &factories
		if rec.Machine.Kind() == production.KindHarvester {
			line = &harvesters
		}
		line.WriteString(EncodeMachine(cat, rec) + recordSep)
	}
	factories.WriteString(emptyField)
	harvesters.WriteString(emptyField)

	return strings.Join([]string{
		formatVersion + " " + cat.Digest(),
		strconv.Itoa(g.Wallet),
		EncodeInventory(g.Inventory),
		factories.String(),
		harvesters.String(),
	}, "\n") + "\n"
}

// Decoder restores saves against a catalog.
type Decoder struct {
	Catalog *catalog.Catalog
	// Strict aborts on the first malformed machine record instead of
	// skipping it.
	Strict bool
	// MachineOptions are applied to every restored machine.
	MachineOptions []production.Option
}

// Game parses a full save. Header, wallet and inventory errors are always
// fatal. A machine record at an already used position is malformed.
func (d Decoder) Game(text string) (*Game, error) {
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	if len(lines) != lineCount {
		return nil, invalid("save has %d lines, want %d", len(lines), lineCount)
	}

	header := strings.Fields(lines[0])
	if len(header) != headerField || header[0] != formatVersion {
		return nil, invalid("header %q", lines[0])
	}
	if header[1] != d.Catalog.Digest() {
		return nil, fmt.Errorf("%w: save %s, catalog %s", ErrCatalogMismatch, header[1], d.Catalog.Digest())
	}

	wallet, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, invalid("wallet %q", lines[1])
	}
	inv := inventory.NewUnbounded()
	if err := RestoreInventory(d.Catalog, lines[2], inv); err != nil {
		return nil, fmt.Errorf("player inventory: %w", err)
	}

	g := &Game{Wallet: wallet, Inventory: inv}
	seen := make(map[production.Position]bool)
	kinds := []production.Kind{production.KindFactory, production.KindHarvester}
	for i, kind := range kinds {
		for _, record := range strings.Split(lines[3+i], recordSep) {
			if strings.TrimSpace(record) == "" {
				continue
			}
			rec, err := DecodeMachine(d.Catalog, kind, record, d.MachineOptions...)
			if err == nil && seen[rec.Position] {
				err = invalid("second machine at %s", rec.Position)
			}
			if err != nil {
				if d.Strict {
					return nil, err
				}
				g.Skipped = append(g.Skipped, err)
				continue
			}
			seen[rec.Position] = true
			g.Machines = append(g.Machines, rec)
		}
	}
	return g, nil
}
