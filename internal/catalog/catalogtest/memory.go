// Package catalogtest provides an in-memory implementation of the catalog
// repositories for tests.
package catalogtest

import (
	"context"
	"sort"
	"sync"

	"subrecetas/internal/catalog"
	"subrecetas/models"
)

// Store keeps every entity type in maps and counts the upsert calls it receives.
type Store struct {
	mu          sync.Mutex
	ingredients map[string]models.Ingredient
	subRecipes  map[string]models.SubRecipe
	recipes     map[string]models.Recipe
	meta        map[string]string

	IngredientUpserts int
	SubRecipeUpserts  int
	RecipeUpserts     int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		ingredients: map[string]models.Ingredient{},
		subRecipes:  map[string]models.SubRecipe{},
		recipes:     map[string]models.Recipe{},
		meta:        map[string]string{},
	}
}

// Repositories exposes the store through the catalog contracts.
func (s *Store) Repositories() catalog.Repositories {
	return catalog.Repositories{
		Ingredients: ingredientRepo{s},
		SubRecipes:  subRecipeRepo{s},
		Recipes:     recipeRepo{s},
		Meta:        metaRepo{s},
	}
}

// PutIngredients stores ingredients without validation.
func (s *Store) PutIngredients(items ...models.Ingredient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.ingredients[item.ID] = item
	}
}

// PutSubRecipes stores sub-recipes without validation.
func (s *Store) PutSubRecipes(items ...models.SubRecipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.subRecipes[item.ID] = item
	}
}

// PutRecipes stores recipes without validation.
func (s *Store) PutRecipes(items ...models.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.recipes[item.ID] = item
	}
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make([]T, 0, len(keys))
	for _, key := range keys {
		values = append(values, m[key])
	}
	return values
}

type ingredientRepo struct{ s *Store }

func (r ingredientRepo) List(context.Context) ([]models.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.ingredients), nil
}

func (r ingredientRepo) GetByID(_ context.Context, id string) (models.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.ingredients[id]
	if !ok {
		return models.Ingredient{}, catalog.ErrNotFound
	}
	return item, nil
}

func (r ingredientRepo) UpsertMany(_ context.Context, items []models.Ingredient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.IngredientUpserts++
	for _, item := range items {
		r.s.ingredients[item.ID] = item
	}
	return nil
}

func (r ingredientRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.ingredients, id)
	return nil
}

func (r ingredientRepo) Clear(context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ingredients = map[string]models.Ingredient{}
	return nil
}

type subRecipeRepo struct{ s *Store }

func (r subRecipeRepo) List(context.Context) ([]models.SubRecipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.subRecipes), nil
}

func (r subRecipeRepo) GetByID(_ context.Context, id string) (models.SubRecipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.subRecipes[id]
	if !ok {
		return models.SubRecipe{}, catalog.ErrNotFound
	}
	return item, nil
}

func (r subRecipeRepo) UpsertMany(_ context.Context, items []models.SubRecipe) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.SubRecipeUpserts++
	for _, item := range items {
		r.s.subRecipes[item.ID] = item
	}
	return nil
}

func (r subRecipeRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.subRecipes, id)
	return nil
}

func (r subRecipeRepo) Clear(context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.subRecipes = map[string]models.SubRecipe{}
	return nil
}

type recipeRepo struct{ s *Store }

func (r recipeRepo) List(context.Context) ([]models.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.recipes), nil
}

func (r recipeRepo) GetByID(_ context.Context, id string) (models.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.recipes[id]
	if !ok {
		return models.Recipe{}, catalog.ErrNotFound
	}
	return item, nil
}

func (r recipeRepo) UpsertMany(_ context.Context, items []models.Recipe) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.RecipeUpserts++
	for _, item := range items {
		r.s.recipes[item.ID] = item
	}
	return nil
}

func (r recipeRepo) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.recipes, id)
	return nil
}

func (r recipeRepo) Clear(context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.recipes = map[string]models.Recipe{}
	return nil
}

type metaRepo struct{ s *Store }

func (r metaRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	value, ok := r.s.meta[key]
	return value, ok, nil
}

func (r metaRepo) Set(_ context.Context, entry models.MetaEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.meta[entry.Key] = entry.Value
	return nil
}
