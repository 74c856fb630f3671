package models

import (
	"time"

	"subrecetas/internal/units"
)

// Ingredient is a purchasable catalog item priced per base unit.
type Ingredient struct {
	ID               string     `gorm:"primaryKey;size:64" json:"id"`
	Name             string     `gorm:"not null;index" json:"name"`
	BaseUnit         units.Unit `gorm:"type:varchar(8);not null" json:"base_unit"`
	PricePerBaseUnit float64    `gorm:"not null;default:0" json:"price_per_base_unit"`

	// --- Purchase audit ---
	// Populated when an invoice line is reconciled against the ingredient.
	LastPurchasePrice *float64    `json:"last_purchase_price,omitempty"`
	LastPurchaseQty   *float64    `json:"last_purchase_qty,omitempty"`
	LastPurchaseUnit  *units.Unit `gorm:"type:varchar(8)" json:"last_purchase_unit,omitempty"`
	PurchaseUnitCost  *float64    `json:"purchase_unit_cost,omitempty"`
	PriceUpdatedAt    *time.Time  `json:"price_updated_at,omitempty"`
}
