package catalog

import (
	"context"
	"errors"

	"subrecetas/models"
)

// ErrNotFound is returned by repositories when an id has no record.
var ErrNotFound = errors.New("catalog: record not found")

// IngredientRepository persists ingredients.
type IngredientRepository interface {
	List(ctx context.Context) ([]models.Ingredient, error)
	GetByID(ctx context.Context, id string) (models.Ingredient, error)
	UpsertMany(ctx context.Context, items []models.Ingredient) error
	DeleteByID(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// SubRecipeRepository persists sub-recipes together with their items.
type SubRecipeRepository interface {
	List(ctx context.Context) ([]models.SubRecipe, error)
	GetByID(ctx context.Context, id string) (models.SubRecipe, error)
	UpsertMany(ctx context.Context, items []models.SubRecipe) error
	DeleteByID(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// RecipeRepository persists recipes together with their items.
type RecipeRepository interface {
	List(ctx context.Context) ([]models.Recipe, error)
	GetByID(ctx context.Context, id string) (models.Recipe, error)
	UpsertMany(ctx context.Context, items []models.Recipe) error
	DeleteByID(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// MetaRepository stores single key/value bookkeeping entries.
// Get reports ok=false when the key is unset.
type MetaRepository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, entry models.MetaEntry) error
}

// Repositories bundles the stores every catalog operation receives explicitly.
type Repositories struct {
	Ingredients IngredientRepository
	SubRecipes  SubRecipeRepository
	Recipes     RecipeRepository
	Meta        MetaRepository
}
