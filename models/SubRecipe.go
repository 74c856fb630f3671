package models

import "subrecetas/internal/units"

// SubRecipe is a preparation made only from ingredients and consumed by recipes.
type SubRecipe struct {
	ID        string          `gorm:"primaryKey;size:64" json:"id"`
	Name      string          `gorm:"not null;index" json:"name"`
	YieldQty  float64         `gorm:"not null" json:"yield_qty"`
	YieldUnit units.Unit      `gorm:"type:varchar(8);not null" json:"yield_unit"`
	Pax       float64         `gorm:"not null" json:"pax"`
	Items     []SubRecipeItem `gorm:"foreignKey:SubRecipeID;references:ID" json:"items"`
}

// SubRecipeItem references an ingredient by id in its base unit.
type SubRecipeItem struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	SubRecipeID  string     `gorm:"size:64;not null;index" json:"-"`
	Position     int        `gorm:"not null" json:"-"`
	IngredientID string     `gorm:"size:64;not null" json:"ingredient_id"`
	Qty          float64    `gorm:"not null" json:"qty"`
	Unit         units.Unit `gorm:"type:varchar(8);not null" json:"unit"`
}
