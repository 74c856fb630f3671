package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"subrecetas/internal/catalog"
	"subrecetas/models"
)

// NewRepositories returns the gorm implementations of the catalog stores.
func NewRepositories(db *gorm.DB) catalog.Repositories {
	return catalog.Repositories{
		Ingredients: &IngredientRepository{db: db},
		SubRecipes:  &SubRecipeRepository{db: db},
		Recipes:     &RecipeRepository{db: db},
		Meta:        &MetaRepository{db: db},
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return catalog.ErrNotFound
	}
	return err
}

// IngredientRepository stores ingredients in the ingredients table.
type IngredientRepository struct {
	db *gorm.DB
}

func (r *IngredientRepository) List(ctx context.Context) ([]models.Ingredient, error) {
	var items []models.Ingredient
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *IngredientRepository) GetByID(ctx context.Context, id string) (models.Ingredient, error) {
	var item models.Ingredient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return models.Ingredient{}, notFound(err)
	}
	return item, nil
}

// UpsertMany writes the whole batch in one transaction; existing rows are replaced.
func (r *IngredientRepository) UpsertMany(ctx context.Context, items []models.Ingredient) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&items).Error
	})
}

func (r *IngredientRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Ingredient{}).Error
}

func (r *IngredientRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Ingredient{}).Error
}

// SubRecipeRepository stores sub-recipes and their ordered items.
type SubRecipeRepository struct {
	db *gorm.DB
}

func (r *SubRecipeRepository) List(ctx context.Context) ([]models.SubRecipe, error) {
	var items []models.SubRecipe
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Order("name ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SubRecipeRepository) GetByID(ctx context.Context, id string) (models.SubRecipe, error) {
	var item models.SubRecipe
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return models.SubRecipe{}, notFound(err)
	}
	return item, nil
}

// UpsertMany replaces each sub-recipe and its item list in one transaction.
func (r *SubRecipeRepository) UpsertMany(ctx context.Context, items []models.SubRecipe) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, subRecipe := range items {
			row := subRecipe
			row.Items = nil
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit(clause.Associations).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert sub-recipe %q: %w", subRecipe.ID, err)
			}
			if err := tx.Where("sub_recipe_id = ?", subRecipe.ID).Delete(&models.SubRecipeItem{}).Error; err != nil {
				return fmt.Errorf("clear items of sub-recipe %q: %w", subRecipe.ID, err)
			}
			if len(subRecipe.Items) == 0 {
				continue
			}
			rows := make([]models.SubRecipeItem, len(subRecipe.Items))
			for idx, item := range subRecipe.Items {
				item.ID = 0
				item.SubRecipeID = subRecipe.ID
				item.Position = idx
				rows[idx] = item
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert items of sub-recipe %q: %w", subRecipe.ID, err)
			}
		}
		return nil
	})
}

func (r *SubRecipeRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sub_recipe_id = ?", id).Delete(&models.SubRecipeItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.SubRecipe{}).Error
	})
}

func (r *SubRecipeRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.SubRecipeItem{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.SubRecipe{}).Error
	})
}

// RecipeRepository stores recipes and their ordered items.
type RecipeRepository struct {
	db *gorm.DB
}

func (r *RecipeRepository) List(ctx context.Context) ([]models.Recipe, error) {
	var items []models.Recipe
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Order("name ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *RecipeRepository) GetByID(ctx context.Context, id string) (models.Recipe, error) {
	var item models.Recipe
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return models.Recipe{}, notFound(err)
	}
	return item, nil
}

// UpsertMany replaces each recipe and its item list in one transaction.
func (r *RecipeRepository) UpsertMany(ctx context.Context, items []models.Recipe) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, recipe := range items {
			row := recipe
			row.Items = nil
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit(clause.Associations).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert recipe %q: %w", recipe.ID, err)
			}
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeItem{}).Error; err != nil {
				return fmt.Errorf("clear items of recipe %q: %w", recipe.ID, err)
			}
			if len(recipe.Items) == 0 {
				continue
			}
			rows := make([]models.RecipeItem, len(recipe.Items))
			for idx, item := range recipe.Items {
				item.ID = 0
				item.RecipeID = recipe.ID
				item.Position = idx
				rows[idx] = item
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert items of recipe %q: %w", recipe.ID, err)
			}
		}
		return nil
	})
}

func (r *RecipeRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Recipe{}).Error
	})
}

func (r *RecipeRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.RecipeItem{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.Recipe{}).Error
	})
}

// MetaRepository stores key/value bookkeeping entries.
type MetaRepository struct {
	db *gorm.DB
}

func (r *MetaRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	var entry models.MetaEntry
	err := r.db.WithContext(ctx).Where(&models.MetaEntry{Key: key}).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

func (r *MetaRepository) Set(ctx context.Context, entry models.MetaEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
}
