package catalog

import (
	"context"
	"fmt"
	"sort"

	"subrecetas/internal/costing"
	"subrecetas/models"
)

// Snapshot is a point-in-time copy of the whole catalog.
type Snapshot struct {
	Ingredients []models.Ingredient `json:"ingredients"`
	SubRecipes  []models.SubRecipe  `json:"sub_recipes"`
	Recipes     []models.Recipe     `json:"recipes"`
}

// LoadSnapshot reads every entity type from the repositories.
func LoadSnapshot(ctx context.Context, repos Repositories) (Snapshot, error) {
	ingredients, err := repos.Ingredients.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list ingredients: %w", err)
	}
	subRecipes, err := repos.SubRecipes.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list sub-recipes: %w", err)
	}
	recipes, err := repos.Recipes.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list recipes: %w", err)
	}
	return Snapshot{Ingredients: ingredients, SubRecipes: subRecipes, Recipes: recipes}, nil
}

// SubRecipeCostLine is the computed cost of one sub-recipe. Error is set
// instead of Cost when the sub-recipe cannot be priced.
type SubRecipeCostLine struct {
	SubRecipe models.SubRecipe `json:"sub_recipe"`
	Cost      float64          `json:"cost"`
	Error     string           `json:"error,omitempty"`
}

// RecipeCostLine is the computed cost of one recipe.
type RecipeCostLine struct {
	Recipe models.Recipe      `json:"recipe"`
	Cost   costing.RecipeCost `json:"cost"`
	Error  string             `json:"error,omitempty"`
}

// FoodCostRatio returns per-portion cost over net price, or 0 when unpriced.
func (l RecipeCostLine) FoodCostRatio() float64 {
	if l.Error != "" || l.Recipe.PriceNet <= 0 {
		return 0
	}
	return l.Cost.PerPax / l.Recipe.PriceNet
}

// CostSheet prices every sub-recipe and recipe of the snapshot. A failing
// entity carries its error message; it is never reported as zero cost.
type CostSheet struct {
	SubRecipes []SubRecipeCostLine `json:"sub_recipes"`
	Recipes    []RecipeCostLine    `json:"recipes"`
}

// Costs computes the cost sheet of the snapshot, sorted by name.
func (s Snapshot) Costs() CostSheet {
	ingredients := costing.IndexIngredients(s.Ingredients)
	subRecipes := costing.IndexSubRecipes(s.SubRecipes)

	sheet := CostSheet{
		SubRecipes: make([]SubRecipeCostLine, 0, len(s.SubRecipes)),
		Recipes:    make([]RecipeCostLine, 0, len(s.Recipes)),
	}
	for _, subRecipe := range s.SubRecipes {
		line := SubRecipeCostLine{SubRecipe: subRecipe}
		cost, err := costing.SubRecipeCost(subRecipe, ingredients)
		if err != nil {
			line.Error = err.Error()
		} else {
			line.Cost = cost
		}
		sheet.SubRecipes = append(sheet.SubRecipes, line)
	}
	for _, recipe := range s.Recipes {
		line := RecipeCostLine{Recipe: recipe}
		cost, err := costing.CalculateRecipeCost(recipe, ingredients, subRecipes)
		if err != nil {
			line.Error = err.Error()
		} else {
			line.Cost = cost
		}
		sheet.Recipes = append(sheet.Recipes, line)
	}

	sort.SliceStable(sheet.SubRecipes, func(i, j int) bool {
		return sheet.SubRecipes[i].SubRecipe.Name < sheet.SubRecipes[j].SubRecipe.Name
	})
	sort.SliceStable(sheet.Recipes, func(i, j int) bool {
		return sheet.Recipes[i].Recipe.Name < sheet.Recipes[j].Recipe.Name
	})
	return sheet
}

// DanglingReference is an item whose referenced entity no longer exists.
type DanglingReference struct {
	Entity      string `json:"entity"`
	ID          string `json:"id"`
	Item        int    `json:"item"`
	MissingKind string `json:"missing_kind"`
	MissingID   string `json:"missing_id"`
}

// DanglingReferences lists items pointing at deleted ingredients or
// sub-recipes. Deletes are not blocked; this report lets callers repair the
// catalog afterwards.
func (s Snapshot) DanglingReferences() []DanglingReference {
	ingredients := costing.IndexIngredients(s.Ingredients)
	subRecipes := costing.IndexSubRecipes(s.SubRecipes)

	var dangling []DanglingReference
	for _, subRecipe := range s.SubRecipes {
		for idx, item := range subRecipe.Items {
			if _, ok := ingredients[item.IngredientID]; !ok {
				dangling = append(dangling, DanglingReference{
					Entity: "sub-recipe", ID: subRecipe.ID, Item: idx,
					MissingKind: "ingredient", MissingID: item.IngredientID,
				})
			}
		}
	}
	for _, recipe := range s.Recipes {
		for idx, item := range recipe.Items {
			missing := ""
			switch item.Kind {
			case models.ItemKindIngredient:
				if _, ok := ingredients[item.IngredientID]; !ok {
					missing = "ingredient"
				}
			case models.ItemKindSubRecipe:
				if _, ok := subRecipes[item.SubRecipeID]; !ok {
					missing = "sub-recipe"
				}
			}
			if missing != "" {
				dangling = append(dangling, DanglingReference{
					Entity: "recipe", ID: recipe.ID, Item: idx,
					MissingKind: missing, MissingID: item.ReferenceID(),
				})
			}
		}
	}
	return dangling
}
