// Package units maps the user-facing measurement units onto the canonical base
// units prices are expressed against.
package units

import (
	"fmt"
	"math"
	"strings"
)

// Unit is a recognized measurement unit.
type Unit string

const (
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Milliliter Unit = "ml"
	Liter      Unit = "l"
	Each       Unit = "unit"
)

type unitDef struct {
	base       Unit
	multiplier float64
}

var unitTable = map[Unit]unitDef{
	Gram:       {base: Gram, multiplier: 1},
	Kilogram:   {base: Gram, multiplier: 1000},
	Milliliter: {base: Milliliter, multiplier: 1},
	Liter:      {base: Milliliter, multiplier: 1000},
	Each:       {base: Each, multiplier: 1},
}

// BaseQuantity is a quantity expressed in a base unit.
type BaseQuantity struct {
	BaseUnit Unit    `json:"base_unit"`
	BaseQty  float64 `json:"base_qty"`
}

// QuantityError reports a quantity that is not a finite, strictly positive number.
type QuantityError struct {
	Field string
	Value float64
}

func (e *QuantityError) Error() string {
	field := e.Field
	if field == "" {
		field = "qty"
	}
	return fmt.Sprintf("%s must be a positive number, got %v", field, e.Value)
}

// UnknownUnitError reports a unit outside the recognized set.
type UnknownUnitError struct {
	Unit string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unknown unit %q", e.Unit)
}

// ValidQuantity reports whether qty is finite and strictly positive.
func ValidQuantity(qty float64) bool {
	return !math.IsNaN(qty) && !math.IsInf(qty, 0) && qty > 0
}

// ToBaseQuantity converts qty expressed in unit into its base unit.
func ToBaseQuantity(qty float64, unit Unit) (BaseQuantity, error) {
	if !ValidQuantity(qty) {
		return BaseQuantity{}, &QuantityError{Field: "qty", Value: qty}
	}
	def, ok := unitTable[unit]
	if !ok {
		return BaseQuantity{}, &UnknownUnitError{Unit: string(unit)}
	}
	return BaseQuantity{BaseUnit: def.base, BaseQty: qty * def.multiplier}, nil
}

// BaseOf returns the base unit a recognized unit normalizes to.
func BaseOf(unit Unit) (Unit, bool) {
	def, ok := unitTable[unit]
	return def.base, ok
}

// IsUnit reports whether unit is recognized.
func IsUnit(unit Unit) bool {
	_, ok := unitTable[unit]
	return ok
}

// IsBaseUnit reports whether unit is one of g, ml or unit.
func IsBaseUnit(unit Unit) bool {
	def, ok := unitTable[unit]
	return ok && def.base == unit
}

// Parse resolves free text such as " KG " into a recognized unit.
func Parse(value string) (Unit, bool) {
	unit := Unit(strings.ToLower(strings.TrimSpace(value)))
	if !IsUnit(unit) {
		return "", false
	}
	return unit, true
}

// Units lists every recognized unit.
func Units() []Unit {
	return []Unit{Gram, Kilogram, Milliliter, Liter, Each}
}

// BaseUnits lists the canonical base units.
func BaseUnits() []Unit {
	return []Unit{Gram, Milliliter, Each}
}
