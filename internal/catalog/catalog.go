// Package catalog holds the static item and recipe definitions shared by
// every game session. A Catalog is built once at startup and never mutated;
// saved games reference its entries only by integer index.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnknownRecipe   = errors.New("unknown recipe")
	ErrUnknownResource = errors.New("unknown resource")
)

// ItemID is the stable save-format identifier of an item kind.
type ItemID int

// ItemKind is the stable enumerated name of an item.
type ItemKind string

const (
	Apple      ItemKind = "APPLE"
	Wood       ItemKind = "WOOD"
	Steel      ItemKind = "STEEL"
	Stone      ItemKind = "STONE"
	Pie        ItemKind = "PIE"
	Jam        ItemKind = "JAM"
	WoodAxe    ItemKind = "WOODAXE"
	StoneAxe   ItemKind = "STONEAXE"
	SteelAxe   ItemKind = "STEELAXE"
	Ingot      ItemKind = "INGOT"
	SteelBlock ItemKind = "STEELBLOCK"
	Brick      ItemKind = "BRICK"
	Planks     ItemKind = "PLANKS"
	Roof       ItemKind = "ROOF"
	House      ItemKind = "HOUSE"
	Berries    ItemKind = "BERRIES"
)

// Item is an immutable item definition. Harvest fields are zero for items
// that cannot be harvested.
type Item struct {
	ID              ItemID   `yaml:"-" json:"id"`
	Kind            ItemKind `yaml:"kind" json:"kind"`
	Buy             int      `yaml:"buy" json:"buy"`
	Sell            int      `yaml:"sell" json:"sell"`
	HarvestDuration int      `yaml:"harvest_duration,omitempty" json:"harvest_duration,omitempty"` // seconds
	RecoveryDelay   int      `yaml:"recovery_delay,omitempty" json:"recovery_delay,omitempty"`     // seconds
	Yield           int      `yaml:"yield,omitempty" json:"yield,omitempty"`                       // units per harvest
}

func (it *Item) String() string {
	return string(it.Kind)
}

// Ingredient is one (item, quantity) requirement of a recipe.
type Ingredient struct {
	Item     *Item
	Quantity int
}

// Recipe turns ingredients into ResultQuantity units of Result in Time seconds.
type Recipe struct {
	Result         *Item
	ResultQuantity int
	Ingredients    []Ingredient
	Time           int
}

// TotalIngredients returns the number of ingredient units the recipe consumes.
func (r *Recipe) TotalIngredients() int {
	total := 0
	for _, ing := range r.Ingredients {
		total += ing.Quantity
	}
	return total
}

func (r *Recipe) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s x%d <=", r.Result, r.ResultQuantity)
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, " %s x%d", ing.Item, ing.Quantity)
	}
	fmt.Fprintf(&b, ", %ds", r.Time)
	return b.String()
}

// Catalog is the read-only registry of items, recipes and harvestable
// resources. Item IDs are positions in the item list, recipe indexes are
// positions in the recipe list, resource indexes are positions in the
// resource list.
type Catalog struct {
	items     []*Item
	byKind    map[ItemKind]*Item
	recipes   []*Recipe
	byResult  map[ItemID]*Recipe
	resources []*Item
	digest    string
}

// New builds a catalog from its three ordered lists. Items are assigned
// IDs in list order.
func New(items []Item, recipes []RecipeDef, resources []ItemKind) (*Catalog, error) {
	c := &Catalog{
		byKind:   make(map[ItemKind]*Item, len(items)),
		byResult: make(map[ItemID]*Recipe, len(recipes)),
	}

	for i := range items {
		it := items[i]
		if it.Kind == "" {
			return nil, fmt.Errorf("item %d: empty kind", i)
		}
		if _, dup := c.byKind[it.Kind]; dup {
			return nil, fmt.Errorf("item %d: duplicate kind %s", i, it.Kind)
		}
		it.ID = ItemID(i)
		c.items = append(c.items, &it)
		c.byKind[it.Kind] = &it
	}

	for i, def := range recipes {
		r, err := c.buildRecipe(def)
		if err != nil {
			return nil, fmt.Errorf("recipe %d: %w", i, err)
		}
		c.recipes = append(c.recipes, r)
		// First recipe wins for reverse lookup.
		if _, ok := c.byResult[r.Result.ID]; !ok {
			c.byResult[r.Result.ID] = r
		}
	}

	for i, kind := range resources {
		it, ok := c.byKind[kind]
		if !ok {
			return nil, fmt.Errorf("resource %d: %w: %s", i, ErrUnknownItem, kind)
		}
		if it.Yield <= 0 {
			return nil, fmt.Errorf("resource %d: %s has no yield", i, kind)
		}
		c.resources = append(c.resources, it)
	}

	c.digest = c.computeDigest()
	return c, nil
}

func (c *Catalog) buildRecipe(def RecipeDef) (*Recipe, error) {
	result, ok := c.byKind[def.Result]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, def.Result)
	}
	if def.Quantity <= 0 {
		return nil, fmt.Errorf("non-positive result quantity %d", def.Quantity)
	}
	if def.Time < 0 {
		return nil, fmt.Errorf("negative time %d", def.Time)
	}
	r := &Recipe{Result: result, ResultQuantity: def.Quantity, Time: def.Time}
	for _, ing := range def.Ingredients {
		it, ok := c.byKind[ing.Item]
		if !ok {
			return nil, fmt.Errorf("ingredient: %w: %s", ErrUnknownItem, ing.Item)
		}
		if ing.Quantity <= 0 {
			return nil, fmt.Errorf("ingredient %s: non-positive quantity %d", ing.Item, ing.Quantity)
		}
		r.Ingredients = append(r.Ingredients, Ingredient{Item: it, Quantity: ing.Quantity})
	}
	return r, nil
}

// computeDigest hashes the canonical form of the catalog. Two catalogs with
// the same digest produce compatible save files.
func (c *Catalog) computeDigest() string {
	var b strings.Builder
	for _, it := range c.items {
		fmt.Fprintf(&b, "i:%d:%s:%d:%d:%d:%d:%d\n", it.ID, it.Kind, it.Buy, it.Sell,
			it.HarvestDuration, it.RecoveryDelay, it.Yield)
	}
	for i, r := range c.recipes {
		fmt.Fprintf(&b, "r:%d:%d:%d:%d", i, r.Result.ID, r.ResultQuantity, r.Time)
		for _, ing := range r.Ingredients {
			fmt.Fprintf(&b, ":%d/%d", ing.Item.ID, ing.Quantity)
		}
		b.WriteByte('\n')
	}
	for i, it := range c.resources {
		fmt.Fprintf(&b, "h:%d:%d\n", i, it.ID)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Digest identifies the catalog version.
func (c *Catalog) Digest() string { return c.digest }

// Item returns the item with the given ID.
func (c *Catalog) Item(id ItemID) (*Item, error) {
	if id < 0 || int(id) >= len(c.items) {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownItem, id)
	}
	return c.items[id], nil
}

// ItemByKind returns the item with the given name.
func (c *Catalog) ItemByKind(kind ItemKind) (*Item, error) {
	it, ok := c.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, kind)
	}
	return it, nil
}

// MustItem is ItemByKind for catalog constants known to exist.
func (c *Catalog) MustItem(kind ItemKind) *Item {
	it, err := c.ItemByKind(kind)
	if err != nil {
		panic(err)
	}
	return it
}

// IDOf returns the save-format ID of an item kind.
func (c *Catalog) IDOf(kind ItemKind) (ItemID, error) {
	it, err := c.ItemByKind(kind)
	if err != nil {
		return -1, err
	}
	return it.ID, nil
}

// Items returns all items in ID order.
func (c *Catalog) Items() []*Item {
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// Recipe returns the recipe at index.
func (c *Catalog) Recipe(index int) (*Recipe, error) {
	if index < 0 || index >= len(c.recipes) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownRecipe, index)
	}
	return c.recipes[index], nil
}

// RecipeIndex returns the index of r, or -1 if r is not part of this catalog.
func (c *Catalog) RecipeIndex(r *Recipe) int {
	for i, candidate := range c.recipes {
		if candidate == r {
			return i
		}
	}
	return -1
}

// RecipeFor returns the recipe producing result.
func (c *Catalog) RecipeFor(result *Item) (*Recipe, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil result", ErrUnknownRecipe)
	}
	r, ok := c.byResult[result.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no recipe produces %s", ErrUnknownRecipe, result.Kind)
	}
	return r, nil
}

// Recipes returns all recipes in index order.
func (c *Catalog) Recipes() []*Recipe {
	out := make([]*Recipe, len(c.recipes))
	copy(out, c.recipes)
	return out
}

// Resource returns the harvestable item at index.
func (c *Catalog) Resource(index int) (*Item, error) {
	if index < 0 || index >= len(c.resources) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownResource, index)
	}
	return c.resources[index], nil
}

// ResourceIndex returns the resource index of it, or -1.
func (c *Catalog) ResourceIndex(it *Item) int {
	for i, r := range c.resources {
		if r == it {
			return i
		}
	}
	return -1
}

// Resources returns all harvestable items in index order.
func (c *Catalog) Resources() []*Item {
	out := make([]*Item, len(c.resources))
	copy(out, c.resources)
	return out
}
