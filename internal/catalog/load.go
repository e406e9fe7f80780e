package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a catalog.
type File struct {
	Items     []Item      `yaml:"items"`
	Recipes   []RecipeDef `yaml:"recipes"`
	Resources []ItemKind  `yaml:"resources"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse builds a catalog from YAML bytes.
func Parse(raw []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("catalog yaml: no items")
	}
	return New(f.Items, f.Recipes, f.Resources)
}

// Marshal renders c in the LoadFile format.
func Marshal(c *Catalog) ([]byte, error) {
	f := File{}
	for _, it := range c.items {
		f.Items = append(f.Items, *it)
	}
	for _, r := range c.recipes {
		def := RecipeDef{Result: r.Result.Kind, Quantity: r.ResultQuantity, Time: r.Time}
		for _, ing := range r.Ingredients {
			def.Ingredients = append(def.Ingredients, IngredientDef{Item: ing.Item.Kind, Quantity: ing.Quantity})
		}
		f.Recipes = append(f.Recipes, def)
	}
	for _, it := range c.resources {
		f.Resources = append(f.Resources, it.Kind)
	}
	return yaml.Marshal(f)
}
