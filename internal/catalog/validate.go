package catalog

import (
	"fmt"
	"math"
	"strings"

	"subrecetas/internal/units"
	"subrecetas/models"
)

// ValidateIngredients checks an ingredient batch. existing holds the stored
// ingredients by id and referenced the ids used by any sub-recipe or recipe;
// a referenced ingredient may not change its base unit.
func ValidateIngredients(batch []models.Ingredient, existing map[string]models.Ingredient, referenced map[string]bool) error {
	for _, ingredient := range batch {
		id := ingredient.ID
		if strings.TrimSpace(id) == "" {
			return entityError("ingredient", id, "id", RuleRequired, "id is required")
		}
		if strings.TrimSpace(ingredient.Name) == "" {
			return entityError("ingredient", id, "name", RuleRequired, "name is required")
		}
		if !units.IsBaseUnit(ingredient.BaseUnit) {
			return entityError("ingredient", id, "base_unit", RuleUnit, fmt.Sprintf("%q is not a base unit", ingredient.BaseUnit))
		}
		if !finite(ingredient.PricePerBaseUnit) || ingredient.PricePerBaseUnit < 0 {
			return entityError("ingredient", id, "price_per_base_unit", RulePrice, "price must be a finite number >= 0")
		}
		if current, ok := existing[id]; ok && referenced[id] && current.BaseUnit != ingredient.BaseUnit {
			return entityError("ingredient", id, "base_unit", RuleBaseUnitLocked,
				fmt.Sprintf("base unit cannot change from %s to %s while recipes reference it", current.BaseUnit, ingredient.BaseUnit))
		}
	}
	return nil
}

// ValidateSubRecipes checks a sub-recipe batch before it is persisted. Item
// references are checked against the union of existingIDs and the batch's own
// ids so a sub-recipe can never contain another sub-recipe. Containment is
// capped at one level, which is what makes the flat membership test sufficient.
func ValidateSubRecipes(batch []models.SubRecipe, existingIDs []string, ingredients map[string]models.Ingredient) error {
	subRecipeIDs := make(map[string]struct{}, len(existingIDs)+len(batch))
	for _, id := range existingIDs {
		subRecipeIDs[id] = struct{}{}
	}
	for _, subRecipe := range batch {
		subRecipeIDs[subRecipe.ID] = struct{}{}
	}

	for _, subRecipe := range batch {
		id := subRecipe.ID
		if strings.TrimSpace(id) == "" {
			return entityError("sub-recipe", id, "id", RuleRequired, "id is required")
		}
		if strings.TrimSpace(subRecipe.Name) == "" {
			return entityError("sub-recipe", id, "name", RuleRequired, "name is required")
		}
		if !units.ValidQuantity(subRecipe.YieldQty) {
			return entityError("sub-recipe", id, "yield_qty", RuleQuantity, "yield quantity must be a positive number")
		}
		if !units.ValidQuantity(subRecipe.Pax) {
			return entityError("sub-recipe", id, "pax", RuleQuantity, "pax must be a positive number")
		}
		if !units.IsUnit(subRecipe.YieldUnit) {
			return entityError("sub-recipe", id, "yield_unit", RuleUnit, fmt.Sprintf("unknown yield unit %q", subRecipe.YieldUnit))
		}

		for idx, item := range subRecipe.Items {
			if !units.ValidQuantity(item.Qty) {
				return itemError("sub-recipe", id, idx, "qty", RuleQuantity, "quantity must be a positive number")
			}
			if strings.TrimSpace(item.IngredientID) == "" {
				return itemError("sub-recipe", id, idx, "ingredient_id", RuleRequired, "ingredient is required")
			}
			if _, nested := subRecipeIDs[item.IngredientID]; nested {
				return itemError("sub-recipe", id, idx, "ingredient_id", RuleNesting,
					fmt.Sprintf("sub-recipes cannot contain other sub-recipes (%q)", item.IngredientID))
			}
			if !units.IsBaseUnit(item.Unit) {
				return itemError("sub-recipe", id, idx, "unit", RuleUnit, fmt.Sprintf("%q is not a base unit", item.Unit))
			}
			ingredient, ok := ingredients[item.IngredientID]
			if !ok {
				return itemError("sub-recipe", id, idx, "ingredient_id", RuleReference,
					fmt.Sprintf("ingredient %q does not exist", item.IngredientID))
			}
			if ingredient.BaseUnit != item.Unit {
				return itemError("sub-recipe", id, idx, "unit", RuleUnit,
					fmt.Sprintf("ingredient %q is measured in %s, not %s", item.IngredientID, ingredient.BaseUnit, item.Unit))
			}
		}
	}
	return nil
}

// ValidateRecipes checks a recipe batch before it is persisted.
func ValidateRecipes(batch []models.Recipe, subRecipeIDs []string, ingredients map[string]models.Ingredient) error {
	known := make(map[string]struct{}, len(subRecipeIDs))
	for _, id := range subRecipeIDs {
		known[id] = struct{}{}
	}

	for _, recipe := range batch {
		id := recipe.ID
		if strings.TrimSpace(id) == "" {
			return entityError("recipe", id, "id", RuleRequired, "id is required")
		}
		if strings.TrimSpace(recipe.Name) == "" {
			return entityError("recipe", id, "name", RuleRequired, "name is required")
		}
		if !units.ValidQuantity(recipe.Pax) {
			return entityError("recipe", id, "pax", RuleQuantity, "pax must be a positive number")
		}
		if recipe.YieldQty != nil && !units.ValidQuantity(*recipe.YieldQty) {
			return entityError("recipe", id, "yield_qty", RuleQuantity, "yield quantity must be a positive number")
		}
		if recipe.YieldUnit != "" && !units.IsUnit(recipe.YieldUnit) {
			return entityError("recipe", id, "yield_unit", RuleUnit, fmt.Sprintf("unknown yield unit %q", recipe.YieldUnit))
		}
		if !finite(recipe.PriceNet) || recipe.PriceNet < 0 {
			return entityError("recipe", id, "price_net", RulePrice, "net price must be a finite number >= 0")
		}

		for idx, item := range recipe.Items {
			if err := validateRecipeItem(id, idx, item, known, ingredients); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRecipeItem(recipeID string, idx int, item models.RecipeItem, subRecipes map[string]struct{}, ingredients map[string]models.Ingredient) error {
	if !units.ValidQuantity(item.Qty) {
		return itemError("recipe", recipeID, idx, "qty", RuleQuantity, "quantity must be a positive number")
	}

	switch item.Kind {
	case models.ItemKindIngredient:
		if strings.TrimSpace(item.IngredientID) == "" {
			return itemError("recipe", recipeID, idx, "ingredient_id", RuleRequired, "ingredient is required")
		}
		if !units.IsBaseUnit(item.Unit) {
			return itemError("recipe", recipeID, idx, "unit", RuleUnit, fmt.Sprintf("%q is not a base unit", item.Unit))
		}
		ingredient, ok := ingredients[item.IngredientID]
		if !ok {
			return itemError("recipe", recipeID, idx, "ingredient_id", RuleReference,
				fmt.Sprintf("ingredient %q does not exist", item.IngredientID))
		}
		if ingredient.BaseUnit != item.Unit {
			return itemError("recipe", recipeID, idx, "unit", RuleUnit,
				fmt.Sprintf("ingredient %q is measured in %s, not %s", item.IngredientID, ingredient.BaseUnit, item.Unit))
		}
	case models.ItemKindSubRecipe:
		if strings.TrimSpace(item.SubRecipeID) == "" {
			return itemError("recipe", recipeID, idx, "sub_recipe_id", RuleRequired, "sub-recipe is required")
		}
		if item.Unit != units.Each {
			return itemError("recipe", recipeID, idx, "unit", RuleUnit, "sub-recipes can only be used in whole units")
		}
		if _, ok := subRecipes[item.SubRecipeID]; !ok {
			return itemError("recipe", recipeID, idx, "sub_recipe_id", RuleReference,
				fmt.Sprintf("sub-recipe %q does not exist", item.SubRecipeID))
		}
	default:
		return itemError("recipe", recipeID, idx, "kind", RuleKind, fmt.Sprintf("unknown item kind %q", item.Kind))
	}
	return nil
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
