// Package catalog guards every write to the ingredient, sub-recipe and recipe
// catalog and exposes the catalog use cases. Every operation receives its
// repositories explicitly; a batch is validated as a whole before a single
// write is issued.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"subrecetas/internal/costing"
	applog "subrecetas/internal/log"
	"subrecetas/models"
)

// SaveIngredients validates and upserts an ingredient batch, returning the number saved.
func SaveIngredients(ctx context.Context, repos Repositories, items []models.Ingredient) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	stored, err := repos.Ingredients.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ingredients: %w", err)
	}
	referenced, err := referencedIngredients(ctx, repos)
	if err != nil {
		return 0, err
	}

	if err := ValidateIngredients(items, costing.IndexIngredients(stored), referenced); err != nil {
		applog.Debug(ctx, "ingredient batch rejected", "error", err)
		return 0, err
	}

	if err := repos.Ingredients.UpsertMany(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert ingredients: %w", err)
	}
	applog.Info(ctx, "ingredients saved", "count", len(items))
	return len(items), nil
}

// SaveSubRecipes validates and upserts a sub-recipe batch, returning the number saved.
func SaveSubRecipes(ctx context.Context, repos Repositories, items []models.SubRecipe) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	existing, err := repos.SubRecipes.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sub-recipes: %w", err)
	}
	ingredients, err := repos.Ingredients.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ingredients: %w", err)
	}

	if err := ValidateSubRecipes(items, subRecipeIDs(existing), costing.IndexIngredients(ingredients)); err != nil {
		applog.Debug(ctx, "sub-recipe batch rejected", "error", err)
		return 0, err
	}

	if err := repos.SubRecipes.UpsertMany(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert sub-recipes: %w", err)
	}
	applog.Info(ctx, "sub-recipes saved", "count", len(items))
	return len(items), nil
}

// SaveRecipes validates and upserts a recipe batch, returning the number saved.
func SaveRecipes(ctx context.Context, repos Repositories, items []models.Recipe) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	subRecipes, err := repos.SubRecipes.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sub-recipes: %w", err)
	}
	ingredients, err := repos.Ingredients.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ingredients: %w", err)
	}

	if err := ValidateRecipes(items, subRecipeIDs(subRecipes), costing.IndexIngredients(ingredients)); err != nil {
		applog.Debug(ctx, "recipe batch rejected", "error", err)
		return 0, err
	}

	if err := repos.Recipes.UpsertMany(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert recipes: %w", err)
	}
	applog.Info(ctx, "recipes saved", "count", len(items))
	return len(items), nil
}

// DeleteIngredient removes an ingredient. References are not checked; see DanglingReferences.
func DeleteIngredient(ctx context.Context, repos Repositories, id string) error {
	if err := repos.Ingredients.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete ingredient %q: %w", id, err)
	}
	applog.Info(ctx, "ingredient deleted", "id", id)
	return nil
}

// DeleteSubRecipe removes a sub-recipe and its items.
func DeleteSubRecipe(ctx context.Context, repos Repositories, id string) error {
	if err := repos.SubRecipes.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete sub-recipe %q: %w", id, err)
	}
	applog.Info(ctx, "sub-recipe deleted", "id", id)
	return nil
}

// DeleteRecipe removes a recipe and its items.
func DeleteRecipe(ctx context.Context, repos Repositories, id string) error {
	if err := repos.Recipes.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete recipe %q: %w", id, err)
	}
	applog.Info(ctx, "recipe deleted", "id", id)
	return nil
}

// SubRecipeCostByID prices a stored sub-recipe against the current ingredient prices.
func SubRecipeCostByID(ctx context.Context, repos Repositories, id string) (float64, error) {
	subRecipe, err := repos.SubRecipes.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("sub-recipe %q: %w", id, err)
	}
	ingredients, err := repos.Ingredients.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ingredients: %w", err)
	}
	return costing.SubRecipeCost(subRecipe, costing.IndexIngredients(ingredients))
}

// RecipeCostByID prices a stored recipe against the current catalog.
func RecipeCostByID(ctx context.Context, repos Repositories, id string) (costing.RecipeCost, error) {
	recipe, err := repos.Recipes.GetByID(ctx, id)
	if err != nil {
		return costing.RecipeCost{}, fmt.Errorf("recipe %q: %w", id, err)
	}
	snapshot, err := LoadSnapshot(ctx, repos)
	if err != nil {
		return costing.RecipeCost{}, err
	}
	return costing.CalculateRecipeCost(recipe, costing.IndexIngredients(snapshot.Ingredients), costing.IndexSubRecipes(snapshot.SubRecipes))
}

// IsNotFound reports whether err stems from a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func referencedIngredients(ctx context.Context, repos Repositories) (map[string]bool, error) {
	subRecipes, err := repos.SubRecipes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sub-recipes: %w", err)
	}
	recipes, err := repos.Recipes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	referenced := make(map[string]bool)
	for _, subRecipe := range subRecipes {
		for _, item := range subRecipe.Items {
			referenced[item.IngredientID] = true
		}
	}
	for _, recipe := range recipes {
		for _, item := range recipe.Items {
			if item.Kind == models.ItemKindIngredient {
				referenced[item.IngredientID] = true
			}
		}
	}
	return referenced, nil
}

func subRecipeIDs(subRecipes []models.SubRecipe) []string {
	ids := make([]string, 0, len(subRecipes))
	for _, subRecipe := range subRecipes {
		ids = append(ids, subRecipe.ID)
	}
	return ids
}
