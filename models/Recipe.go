package models

import "subrecetas/internal/units"

// Recipe item kinds.
const (
	ItemKindIngredient = "ingredient"
	ItemKindSubRecipe  = "subrecipe"
)

// Recipe is a sellable dish costed from ingredients and sub-recipes.
type Recipe struct {
	ID        string       `gorm:"primaryKey;size:64" json:"id"`
	Name      string       `gorm:"not null;index" json:"name"`
	YieldQty  *float64     `json:"yield_qty,omitempty"`
	YieldUnit units.Unit   `gorm:"type:varchar(8)" json:"yield_unit,omitempty"`
	Pax       float64      `gorm:"not null" json:"pax"`
	PriceNet  float64      `gorm:"not null;default:0" json:"price_net"`
	Items     []RecipeItem `gorm:"foreignKey:RecipeID;references:ID" json:"items"`
}

type RecipeItem struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	RecipeID string `gorm:"size:64;not null;index" json:"-"`
	Position int    `gorm:"not null" json:"-"`
	Kind     string `gorm:"type:varchar(16);not null" json:"kind"`

	// --- Component Link ---
	// Exactly one of these is set, matching Kind.
	IngredientID string `gorm:"size:64" json:"ingredient_id,omitempty"`
	SubRecipeID  string `gorm:"size:64" json:"sub_recipe_id,omitempty"`

	Qty  float64    `gorm:"not null" json:"qty"`
	Unit units.Unit `gorm:"type:varchar(8);not null" json:"unit"`
}

// IngredientItem builds an ingredient-kind recipe item.
func IngredientItem(ingredientID string, qty float64, unit units.Unit) RecipeItem {
	return RecipeItem{Kind: ItemKindIngredient, IngredientID: ingredientID, Qty: qty, Unit: unit}
}

// SubRecipeItemRef builds a sub-recipe-kind recipe item; sub-recipes are consumed whole.
func SubRecipeItemRef(subRecipeID string, qty float64) RecipeItem {
	return RecipeItem{Kind: ItemKindSubRecipe, SubRecipeID: subRecipeID, Qty: qty, Unit: units.Each}
}

// ReferenceID returns the id of the referenced ingredient or sub-recipe.
func (i RecipeItem) ReferenceID() string {
	if i.Kind == ItemKindSubRecipe {
		return i.SubRecipeID
	}
	return i.IngredientID
}
