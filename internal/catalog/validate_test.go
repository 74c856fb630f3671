package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subrecetas/internal/units"
	"subrecetas/models"
)

func validationRule(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.Truef(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr
}

func ingredientIndex() map[string]models.Ingredient {
	return map[string]models.Ingredient{
		"ing-harina": {ID: "ing-harina", Name: "Harina", BaseUnit: units.Gram, PricePerBaseUnit: 0.0025},
		"ing-leche":  {ID: "ing-leche", Name: "Leche", BaseUnit: units.Milliliter, PricePerBaseUnit: 0.0012},
	}
}

func TestValidateIngredients(t *testing.T) {
	t.Parallel()

	existing := ingredientIndex()
	tests := []struct {
		name       string
		batch      []models.Ingredient
		referenced map[string]bool
		rule       string
		field      string
	}{
		{name: "ok", batch: []models.Ingredient{{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram}}},
		{name: "missing id", batch: []models.Ingredient{{Name: "Sal", BaseUnit: units.Gram}}, rule: RuleRequired, field: "id"},
		{name: "missing name", batch: []models.Ingredient{{ID: "ing-sal", BaseUnit: units.Gram}}, rule: RuleRequired, field: "name"},
		{name: "non base unit", batch: []models.Ingredient{{ID: "ing-sal", Name: "Sal", BaseUnit: units.Kilogram}}, rule: RuleUnit, field: "base_unit"},
		{name: "negative price", batch: []models.Ingredient{{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram, PricePerBaseUnit: -1}}, rule: RulePrice},
		{name: "nan price", batch: []models.Ingredient{{ID: "ing-sal", Name: "Sal", BaseUnit: units.Gram, PricePerBaseUnit: math.NaN()}}, rule: RulePrice},
		{
			name:       "referenced base unit change",
			batch:      []models.Ingredient{{ID: "ing-harina", Name: "Harina", BaseUnit: units.Milliliter}},
			referenced: map[string]bool{"ing-harina": true},
			rule:       RuleBaseUnitLocked,
		},
		{
			name:  "unreferenced base unit change",
			batch: []models.Ingredient{{ID: "ing-harina", Name: "Harina", BaseUnit: units.Milliliter}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateIngredients(tt.batch, existing, tt.referenced)
			if tt.rule == "" {
				require.NoError(t, err)
				return
			}
			verr := validationRule(t, err)
			assert.Equal(t, tt.rule, verr.Rule)
			assert.Equal(t, -1, verr.Item)
			if tt.field != "" {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestValidateSubRecipesRejectsNesting(t *testing.T) {
	t.Parallel()

	ingredients := ingredientIndex()
	base := models.SubRecipe{ID: "sub-a", Name: "A", YieldQty: 1, YieldUnit: units.Gram, Pax: 1}

	existingRef := base
	existingRef.Items = []models.SubRecipeItem{{IngredientID: "sub-stored", Qty: 1, Unit: units.Gram}}
	verr := validationRule(t, ValidateSubRecipes([]models.SubRecipe{existingRef}, []string{"sub-stored"}, ingredients))
	assert.Equal(t, RuleNesting, verr.Rule)
	assert.Equal(t, 0, verr.Item)

	sibling := models.SubRecipe{ID: "sub-b", Name: "B", YieldQty: 1, YieldUnit: units.Gram, Pax: 1}
	siblingRef := base
	siblingRef.Items = []models.SubRecipeItem{
		{IngredientID: "ing-harina", Qty: 10, Unit: units.Gram},
		{IngredientID: "sub-b", Qty: 1, Unit: units.Gram},
	}
	verr = validationRule(t, ValidateSubRecipes([]models.SubRecipe{siblingRef, sibling}, nil, ingredients))
	assert.Equal(t, RuleNesting, verr.Rule)
	assert.Equal(t, 1, verr.Item)

	selfRef := base
	selfRef.Items = []models.SubRecipeItem{{IngredientID: "sub-a", Qty: 1, Unit: units.Gram}}
	verr = validationRule(t, ValidateSubRecipes([]models.SubRecipe{selfRef}, nil, ingredients))
	assert.Equal(t, RuleNesting, verr.Rule)
}

func TestValidateSubRecipes(t *testing.T) {
	t.Parallel()

	ingredients := ingredientIndex()
	valid := func() models.SubRecipe {
		return models.SubRecipe{
			ID: "sub-a", Name: "A", YieldQty: 500, YieldUnit: units.Gram, Pax: 4,
			Items: []models.SubRecipeItem{{IngredientID: "ing-harina", Qty: 500, Unit: units.Gram}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*models.SubRecipe)
		rule   string
		field  string
	}{
		{name: "ok", mutate: func(*models.SubRecipe) {}},
		{name: "missing name", mutate: func(s *models.SubRecipe) { s.Name = " " }, rule: RuleRequired, field: "name"},
		{name: "zero yield", mutate: func(s *models.SubRecipe) { s.YieldQty = 0 }, rule: RuleQuantity, field: "yield_qty"},
		{name: "zero pax", mutate: func(s *models.SubRecipe) { s.Pax = 0 }, rule: RuleQuantity, field: "pax"},
		{name: "unknown yield unit", mutate: func(s *models.SubRecipe) { s.YieldUnit = "cup" }, rule: RuleUnit, field: "yield_unit"},
		{name: "negative item qty", mutate: func(s *models.SubRecipe) { s.Items[0].Qty = -1 }, rule: RuleQuantity, field: "qty"},
		{name: "non base item unit", mutate: func(s *models.SubRecipe) { s.Items[0].Unit = units.Kilogram }, rule: RuleUnit, field: "unit"},
		{name: "missing ingredient", mutate: func(s *models.SubRecipe) { s.Items[0].IngredientID = "ing-ghost" }, rule: RuleReference},
		{name: "unit differs from ingredient", mutate: func(s *models.SubRecipe) { s.Items[0].Unit = units.Milliliter }, rule: RuleUnit},
		{name: "empty ingredient id", mutate: func(s *models.SubRecipe) { s.Items[0].IngredientID = "" }, rule: RuleRequired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			subRecipe := valid()
			tt.mutate(&subRecipe)
			err := ValidateSubRecipes([]models.SubRecipe{subRecipe}, nil, ingredients)
			if tt.rule == "" {
				require.NoError(t, err)
				return
			}
			verr := validationRule(t, err)
			assert.Equal(t, tt.rule, verr.Rule)
			assert.Equal(t, "sub-a", verr.ID)
			if tt.field != "" {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestValidateRecipes(t *testing.T) {
	t.Parallel()

	ingredients := ingredientIndex()
	valid := func() models.Recipe {
		return models.Recipe{
			ID: "rec-a", Name: "A", Pax: 6, PriceNet: 12,
			Items: []models.RecipeItem{
				models.SubRecipeItemRef("sub-a", 1),
				models.IngredientItem("ing-leche", 200, units.Milliliter),
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*models.Recipe)
		rule   string
	}{
		{name: "ok", mutate: func(*models.Recipe) {}},
		{name: "zero pax", mutate: func(r *models.Recipe) { r.Pax = 0 }, rule: RuleQuantity},
		{name: "bad yield", mutate: func(r *models.Recipe) { v := -2.0; r.YieldQty = &v }, rule: RuleQuantity},
		{name: "unknown yield unit", mutate: func(r *models.Recipe) { r.YieldUnit = "tray" }, rule: RuleUnit},
		{name: "negative price", mutate: func(r *models.Recipe) { r.PriceNet = -1 }, rule: RulePrice},
		{name: "missing sub-recipe", mutate: func(r *models.Recipe) { r.Items[0].SubRecipeID = "sub-ghost" }, rule: RuleReference},
		{name: "sub-recipe in grams", mutate: func(r *models.Recipe) { r.Items[0].Unit = units.Gram }, rule: RuleUnit},
		{name: "missing ingredient", mutate: func(r *models.Recipe) { r.Items[1].IngredientID = "ing-ghost" }, rule: RuleReference},
		{name: "ingredient unit mismatch", mutate: func(r *models.Recipe) { r.Items[1].Unit = units.Gram }, rule: RuleUnit},
		{name: "unknown kind", mutate: func(r *models.Recipe) { r.Items[1].Kind = "garnish" }, rule: RuleKind},
		{name: "zero item qty", mutate: func(r *models.Recipe) { r.Items[1].Qty = 0 }, rule: RuleQuantity},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			recipe := valid()
			tt.mutate(&recipe)
			err := ValidateRecipes([]models.Recipe{recipe}, []string{"sub-a"}, ingredients)
			if tt.rule == "" {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tt.rule, validationRule(t, err).Rule)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := itemError("sub-recipe", "sub-a", 1, "ingredient_id", RuleNesting, "sub-recipes cannot contain other sub-recipes")
	assert.Equal(t, `sub-recipe "sub-a" item 2 ingredient_id: sub-recipes cannot contain other sub-recipes`, err.Error())
}
