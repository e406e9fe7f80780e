package catalog

// RecipeDef is the by-name form of a recipe used to build a Catalog.
type RecipeDef struct {
	Result      ItemKind        `yaml:"result"`
	Quantity    int             `yaml:"quantity"`
	Time        int             `yaml:"time"`
	Ingredients []IngredientDef `yaml:"ingredients"`
}

// IngredientDef is the by-name form of an Ingredient.
type IngredientDef struct {
	Item     ItemKind `yaml:"item"`
	Quantity int      `yaml:"quantity"`
}

// Item order is the save-format ID order and must only ever be appended to.
var defaultItems = []Item{
	{Kind: Apple, Buy: 5, Sell: 1, HarvestDuration: 0, RecoveryDelay: 5, Yield: 5},
	{Kind: Wood, Buy: 5, Sell: 1, HarvestDuration: 1, RecoveryDelay: 0, Yield: 1},
	{Kind: Steel, Buy: 5, Sell: 1, HarvestDuration: 5, RecoveryDelay: 2, Yield: 2},
	{Kind: Stone, Buy: 5, Sell: 1, HarvestDuration: 2, RecoveryDelay: 0, Yield: 3},
	{Kind: Pie, Buy: 20, Sell: 15},
	{Kind: Jam, Buy: 20, Sell: 15},
	{Kind: WoodAxe, Buy: 40, Sell: 30},
	{Kind: StoneAxe, Buy: 45, Sell: 35},
	{Kind: SteelAxe, Buy: 50, Sell: 40},
	{Kind: Ingot, Buy: 15, Sell: 10},
	{Kind: SteelBlock, Buy: 150, Sell: 100},
	{Kind: Brick, Buy: 50, Sell: 25},
	{Kind: Planks, Buy: 10, Sell: 5},
	{Kind: Roof, Buy: 25, Sell: 12},
	{Kind: House, Buy: 150000, Sell: 100000},
	{Kind: Berries, Buy: 5, Sell: 1, HarvestDuration: 2, RecoveryDelay: 1, Yield: 1},
}

var defaultRecipes = []RecipeDef{
	{Result: SteelBlock, Quantity: 1, Time: 10, Ingredients: []IngredientDef{{Ingot, 9}}},
	{Result: Ingot, Quantity: 1, Time: 1, Ingredients: []IngredientDef{{Steel, 1}}},
	{Result: Pie, Quantity: 1, Time: 5, Ingredients: []IngredientDef{{Apple, 5}}},
	{Result: WoodAxe, Quantity: 1, Time: 5, Ingredients: []IngredientDef{{Wood, 6}}},
	{Result: StoneAxe, Quantity: 1, Time: 10, Ingredients: []IngredientDef{{Wood, 2}, {Stone, 3}}},
	{Result: SteelAxe, Quantity: 1, Time: 15, Ingredients: []IngredientDef{{Wood, 2}, {Steel, 3}}},
	{Result: Brick, Quantity: 2, Time: 10, Ingredients: []IngredientDef{{Stone, 4}}},
	{Result: Planks, Quantity: 4, Time: 2, Ingredients: []IngredientDef{{Wood, 1}}},
	{Result: Roof, Quantity: 1, Time: 2, Ingredients: []IngredientDef{{Wood, 2}, {Stone, 2}}},
	{Result: House, Quantity: 1, Time: 60, Ingredients: []IngredientDef{{Brick, 100}, {Planks, 100}, {Roof, 50}}},
}

var defaultResources = []ItemKind{Apple, Wood, Steel, Stone, Berries}

// Default returns the built-in game catalog.
func Default() *Catalog {
	c, err := New(defaultItems, defaultRecipes, defaultResources)
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}
