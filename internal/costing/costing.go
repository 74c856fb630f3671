// Package costing computes ingredient, sub-recipe and recipe costs from a
// point-in-time catalog snapshot. Every function is pure and any error aborts
// the whole computation; partial totals are never returned.
package costing

import (
	"fmt"

	"subrecetas/internal/units"
	"subrecetas/models"
)

// RecipeCost is the total cost of a recipe and its cost per portion.
type RecipeCost struct {
	Total  float64 `json:"total"`
	PerPax float64 `json:"per_pax"`
}

// IngredientCost prices qty of an ingredient. The unit must already be the
// ingredient's base unit; no conversion happens here.
func IngredientCost(ingredient models.Ingredient, qty float64, unit units.Unit) (float64, error) {
	if !units.ValidQuantity(qty) {
		return 0, &units.QuantityError{Field: "qty", Value: qty}
	}
	if ingredient.BaseUnit != unit {
		return 0, &UnitMismatchError{
			Entity:   "ingredient",
			ID:       ingredient.ID,
			Expected: ingredient.BaseUnit,
			Got:      unit,
		}
	}
	return ingredient.PricePerBaseUnit * qty, nil
}

// SubRecipeCost sums the cost of every item of the sub-recipe.
func SubRecipeCost(subRecipe models.SubRecipe, ingredientsByID map[string]models.Ingredient) (float64, error) {
	total := 0.0
	for _, item := range subRecipe.Items {
		ingredient, ok := ingredientsByID[item.IngredientID]
		if !ok {
			return 0, fmt.Errorf("sub-recipe %q: %w", subRecipe.ID, &MissingEntityError{Entity: "ingredient", ID: item.IngredientID})
		}
		cost, err := IngredientCost(ingredient, item.Qty, item.Unit)
		if err != nil {
			return 0, fmt.Errorf("sub-recipe %q: %w", subRecipe.ID, err)
		}
		total += cost
	}
	return total, nil
}

// CalculateRecipeCost sums every recipe item and divides by pax.
func CalculateRecipeCost(recipe models.Recipe, ingredientsByID map[string]models.Ingredient, subRecipesByID map[string]models.SubRecipe) (RecipeCost, error) {
	if !units.ValidQuantity(recipe.Pax) {
		return RecipeCost{}, &units.QuantityError{Field: "pax", Value: recipe.Pax}
	}

	total := 0.0
	for _, item := range recipe.Items {
		cost, err := recipeItemCost(item, ingredientsByID, subRecipesByID)
		if err != nil {
			return RecipeCost{}, fmt.Errorf("recipe %q: %w", recipe.ID, err)
		}
		total += cost
	}

	return RecipeCost{Total: total, PerPax: total / recipe.Pax}, nil
}

func recipeItemCost(item models.RecipeItem, ingredientsByID map[string]models.Ingredient, subRecipesByID map[string]models.SubRecipe) (float64, error) {
	if !units.ValidQuantity(item.Qty) {
		return 0, &units.QuantityError{Field: "qty", Value: item.Qty}
	}

	switch item.Kind {
	case models.ItemKindIngredient:
		ingredient, ok := ingredientsByID[item.IngredientID]
		if !ok {
			return 0, &MissingEntityError{Entity: "ingredient", ID: item.IngredientID}
		}
		return IngredientCost(ingredient, item.Qty, item.Unit)
	case models.ItemKindSubRecipe:
		subRecipe, ok := subRecipesByID[item.SubRecipeID]
		if !ok {
			return 0, &MissingEntityError{Entity: "sub-recipe", ID: item.SubRecipeID}
		}
		if item.Unit != units.Each {
			return 0, &UnitMismatchError{
				Entity:   "sub-recipe",
				ID:       item.SubRecipeID,
				Expected: units.Each,
				Got:      item.Unit,
			}
		}
		cost, err := SubRecipeCost(subRecipe, ingredientsByID)
		if err != nil {
			return 0, err
		}
		return cost * item.Qty, nil
	default:
		return 0, fmt.Errorf("unknown recipe item kind %q", item.Kind)
	}
}

// IndexIngredients keys ingredients by id.
func IndexIngredients(ingredients []models.Ingredient) map[string]models.Ingredient {
	index := make(map[string]models.Ingredient, len(ingredients))
	for _, ingredient := range ingredients {
		index[ingredient.ID] = ingredient
	}
	return index
}

// IndexSubRecipes keys sub-recipes by id.
func IndexSubRecipes(subRecipes []models.SubRecipe) map[string]models.SubRecipe {
	index := make(map[string]models.SubRecipe, len(subRecipes))
	for _, subRecipe := range subRecipes {
		index[subRecipe.ID] = subRecipe
	}
	return index
}
