package catalog

import (
	"context"
	"fmt"

	applog "subrecetas/internal/log"
	"subrecetas/internal/units"
	"subrecetas/models"
)

const (
	SeedKey     = "seed_version"
	SeedVersion = "2026-02-05-v1"
)

// SeedResult reports whether EnsureDemoSeed wrote the demo catalog.
type SeedResult struct {
	Seeded  bool   `json:"seeded"`
	Version string `json:"version"`
}

// DemoIngredients returns the ingredients of the demo catalog.
func DemoIngredients() []models.Ingredient {
	return []models.Ingredient{
		{ID: "ing-harina", Name: "Harina 000", BaseUnit: units.Gram, PricePerBaseUnit: 0.0025},
		{ID: "ing-azucar", Name: "Azucar", BaseUnit: units.Gram, PricePerBaseUnit: 0.0022},
		{ID: "ing-manteca", Name: "Manteca", BaseUnit: units.Gram, PricePerBaseUnit: 0.01},
		{ID: "ing-leche", Name: "Leche", BaseUnit: units.Milliliter, PricePerBaseUnit: 0.0012},
		{ID: "ing-huevos", Name: "Huevos", BaseUnit: units.Each, PricePerBaseUnit: 30},
		{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram, PricePerBaseUnit: 0.0008},
		{ID: "ing-levadura", Name: "Levadura", BaseUnit: units.Gram, PricePerBaseUnit: 0.02},
		{ID: "ing-chocolate", Name: "Chocolate", BaseUnit: units.Gram, PricePerBaseUnit: 0.015},
	}
}

// DemoSubRecipes returns the sub-recipes of the demo catalog.
func DemoSubRecipes() []models.SubRecipe {
	return []models.SubRecipe{
		{
			ID:        "sub-masa-basica",
			Name:      "Masa basica",
			YieldQty:  1200,
			YieldUnit: units.Gram,
			Pax:       8,
			Items: []models.SubRecipeItem{
				{IngredientID: "ing-harina", Qty: 500, Unit: units.Gram},
				{IngredientID: "ing-azucar", Qty: 200, Unit: units.Gram},
				{IngredientID: "ing-manteca", Qty: 200, Unit: units.Gram},
				{IngredientID: "ing-huevos", Qty: 3, Unit: units.Each},
				{IngredientID: "ing-leche", Qty: 150, Unit: units.Milliliter},
				{IngredientID: "ing-sal", Qty: 4, Unit: units.Gram},
				{IngredientID: "ing-levadura", Qty: 6, Unit: units.Gram},
			},
		},
	}
}

// DemoRecipes returns the recipes of the demo catalog.
func DemoRecipes() []models.Recipe {
	yield := 1.0
	return []models.Recipe{
		{
			ID:        "rec-torta-simple",
			Name:      "Torta simple",
			YieldQty:  &yield,
			YieldUnit: units.Each,
			Pax:       8,
			PriceNet:  18,
			Items: []models.RecipeItem{
				models.SubRecipeItemRef("sub-masa-basica", 1),
				models.IngredientItem("ing-chocolate", 120, units.Gram),
			},
		},
	}
}

// EnsureDemoSeed replaces the catalog with the demo data unless the current
// seed version is already stamped in the meta store.
func EnsureDemoSeed(ctx context.Context, repos Repositories) (SeedResult, error) {
	current, ok, err := repos.Meta.Get(ctx, SeedKey)
	if err != nil {
		return SeedResult{}, fmt.Errorf("read seed version: %w", err)
	}
	if ok && current == SeedVersion {
		applog.Debug(ctx, "demo seed already applied", "version", SeedVersion)
		return SeedResult{Seeded: false, Version: SeedVersion}, nil
	}

	if err := repos.Ingredients.Clear(ctx); err != nil {
		return SeedResult{}, fmt.Errorf("clear ingredients: %w", err)
	}
	if err := repos.SubRecipes.Clear(ctx); err != nil {
		return SeedResult{}, fmt.Errorf("clear sub-recipes: %w", err)
	}
	if err := repos.Recipes.Clear(ctx); err != nil {
		return SeedResult{}, fmt.Errorf("clear recipes: %w", err)
	}

	if _, err := SaveIngredients(ctx, repos, DemoIngredients()); err != nil {
		return SeedResult{}, fmt.Errorf("seed ingredients: %w", err)
	}
	if _, err := SaveSubRecipes(ctx, repos, DemoSubRecipes()); err != nil {
		return SeedResult{}, fmt.Errorf("seed sub-recipes: %w", err)
	}
	if _, err := SaveRecipes(ctx, repos, DemoRecipes()); err != nil {
		return SeedResult{}, fmt.Errorf("seed recipes: %w", err)
	}

	if err := repos.Meta.Set(ctx, models.MetaEntry{Key: SeedKey, Value: SeedVersion}); err != nil {
		return SeedResult{}, fmt.Errorf("stamp seed version: %w", err)
	}

	applog.Info(ctx, "demo catalog seeded", "version", SeedVersion)
	return SeedResult{Seeded: true, Version: SeedVersion}, nil
}
