// Package reconcile matches parsed invoice lines against the ingredient
// catalog. Row problems are collected rather than returned one at a time so a
// caller can show them next to each line; a single problem closes the save
// gate for the whole batch.
package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"subrecetas/internal/invoice"
	"subrecetas/internal/units"
	"subrecetas/models"
)

// RowErrorCode classifies a reconciliation row problem.
type RowErrorCode string

const (
	CodeEmptyDescription     RowErrorCode = "empty_description"
	CodeInvalidTotal         RowErrorCode = "invalid_total"
	CodeInvalidQuantity      RowErrorCode = "invalid_quantity"
	CodeMissingUnit          RowErrorCode = "missing_unit"
	CodeInvalidUnit          RowErrorCode = "invalid_unit"
	CodeConversionFailed     RowErrorCode = "conversion_failed"
	CodeMissingSelection     RowErrorCode = "missing_selection"
	CodeIncompatibleBaseUnit RowErrorCode = "incompatible_base_unit"
	CodeMissingQuantity      RowErrorCode = "missing_quantity"
)

// RowError is one problem found on a zero-based invoice row.
type RowError struct {
	Row     int          `json:"row"`
	Code    RowErrorCode `json:"code"`
	Message string       `json:"message"`
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row+1, e.Message)
}

// RowErrors is the collected result of ValidateLines, in row order.
type RowErrors []RowError

// CanSave reports whether the save gate is open: no row has any error.
func (r RowErrors) CanSave() bool {
	return len(r) == 0
}

// ForRow returns the errors recorded for one row.
func (r RowErrors) ForRow(row int) []RowError {
	var out []RowError
	for _, rowErr := range r {
		if rowErr.Row == row {
			out = append(out, rowErr)
		}
	}
	return out
}

// ValidateLines checks every line and returns all problems found. selections
// holds the ingredient name chosen for each line; rows without a selection
// are reported as missing.
func ValidateLines(lines []invoice.ParsedLine, selections []string, catalog []models.Ingredient) RowErrors {
	index := indexByName(catalog)
	errs := RowErrors{}
	add := func(row int, code RowErrorCode, format string, args ...any) {
		errs = append(errs, RowError{Row: row, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	for row, line := range lines {
		if strings.TrimSpace(line.RawDescription) == "" {
			add(row, CodeEmptyDescription, "description is required")
		}
		if !units.ValidQuantity(line.LineTotal) {
			add(row, CodeInvalidTotal, "line total must be a positive number")
		}

		qtyOK, unitOK := false, false
		var unit units.Unit
		if line.Qty != nil {
			if units.ValidQuantity(*line.Qty) {
				qtyOK = true
			} else {
				add(row, CodeInvalidQuantity, "quantity must be a positive number")
			}
			if line.Unit == nil || strings.TrimSpace(*line.Unit) == "" {
				add(row, CodeMissingUnit, "a unit is required when a quantity is given")
			}
		}
		if line.Unit != nil && strings.TrimSpace(*line.Unit) != "" {
			if parsed, ok := units.Parse(*line.Unit); ok {
				unit, unitOK = parsed, true
			} else {
				add(row, CodeInvalidUnit, "unknown unit %q", *line.Unit)
			}
		}

		var base *units.BaseQuantity
		if line.Qty != nil && line.Unit != nil && strings.TrimSpace(*line.Unit) != "" {
			converted, err := units.ToBaseQuantity(*line.Qty, unit)
			switch {
			case err == nil:
				base = &converted
			case qtyOK && unitOK:
				add(row, CodeConversionFailed, "cannot convert quantity: %v", err)
			}
		}

		selection := selectionAt(selections, row)
		if strings.TrimSpace(selection) == "" {
			add(row, CodeMissingSelection, "choose an ingredient for this line")
			continue
		}
		if existing, ok := index[NormalizeName(selection)]; ok && base != nil && existing.BaseUnit != base.BaseUnit {
			add(row, CodeIncompatibleBaseUnit, "%s is measured in %s but this line is in %s",
				existing.Name, existing.BaseUnit, base.BaseUnit)
		}
	}
	return errs
}

// Matches reports, per selection, whether it resolves to an existing ingredient.
func Matches(selections []string, catalog []models.Ingredient) []bool {
	index := indexByName(catalog)
	out := make([]bool, len(selections))
	for i, selection := range selections {
		key := NormalizeName(selection)
		if key == "" {
			continue
		}
		_, out[i] = index[key]
	}
	return out
}

// PendingOverwrites lists the existing ingredients a commit of selections
// would update, once each, in first-selection order.
func PendingOverwrites(selections []string, catalog []models.Ingredient) []models.Ingredient {
	index := indexByName(catalog)
	seen := make(map[string]bool)
	var out []models.Ingredient
	for _, selection := range selections {
		existing, ok := index[NormalizeName(selection)]
		if !ok || seen[existing.ID] {
			continue
		}
		seen[existing.ID] = true
		out = append(out, existing)
	}
	return out
}

// SuggestSelections proposes, for each line, the catalog ingredient whose
// normalized name appears in the line description. The longest name wins;
// lines without a candidate get an empty selection.
func SuggestSelections(lines []invoice.ParsedLine, catalog []models.Ingredient) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		description := " " + NormalizeName(line.RawDescription) + " "
		best := ""
		for _, ingredient := range catalog {
			key := NormalizeName(ingredient.Name)
			if key == "" || len(key) <= len(NormalizeName(best)) {
				continue
			}
			if strings.Contains(description, " "+key+" ") {
				best = ingredient.Name
			}
		}
		out[i] = best
	}
	return out
}

// Options controls the clock and id source of BuildIngredientsForSave.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func (o Options) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

// BuildIngredientsForSave turns reconciled lines into the ingredient records
// to upsert. Matched ingredients keep their id and get new price and purchase
// audit fields; unmatched selections become new ingredients. Lines resolving
// to the same name update one record and the last line wins. A matched
// ingredient whose base unit differs from the line is a hard error.
func BuildIngredientsForSave(lines []invoice.ParsedLine, selections []string, catalog []models.Ingredient, opts Options) ([]models.Ingredient, error) {
	if len(selections) != len(lines) {
		return nil, &SelectionCountError{Selections: len(selections), Lines: len(lines)}
	}

	index := indexByName(catalog)
	now := opts.now()
	positions := make(map[string]int)
	out := make([]models.Ingredient, 0, len(lines))

	for row, line := range lines {
		selection := strings.Join(strings.Fields(selections[row]), " ")
		key := NormalizeName(selection)
		if key == "" {
			return nil, &RowError{Row: row, Code: CodeMissingSelection, Message: "choose an ingredient for this line"}
		}
		if line.Qty == nil || line.Unit == nil {
			return nil, &RowError{Row: row, Code: CodeMissingQuantity, Message: "quantity and unit are required to derive a price"}
		}
		unit, ok := units.Parse(*line.Unit)
		if !ok {
			return nil, &RowError{Row: row, Code: CodeInvalidUnit, Message: fmt.Sprintf("unknown unit %q", *line.Unit)}
		}
		if !units.ValidQuantity(line.LineTotal) {
			return nil, &RowError{Row: row, Code: CodeInvalidTotal, Message: "line total must be a positive number"}
		}
		base, err := units.ToBaseQuantity(*line.Qty, unit)
		if err != nil {
			return nil, &RowError{Row: row, Code: CodeConversionFailed, Message: err.Error()}
		}

		var record models.Ingredient
		if pos, ok := positions[key]; ok {
			record = out[pos]
		} else if existing, ok := index[key]; ok {
			record = existing
		} else {
			record = models.Ingredient{ID: opts.newID(), Name: selection, BaseUnit: base.BaseUnit}
		}
		if record.BaseUnit != base.BaseUnit {
			return nil, &RowError{Row: row, Code: CodeIncompatibleBaseUnit,
				Message: fmt.Sprintf("%s is measured in %s but this line is in %s", record.Name, record.BaseUnit, base.BaseUnit)}
		}

		total, qty, purchaseUnit, stamp := line.LineTotal, *line.Qty, unit, now
		unitCost := total / qty
		record.PricePerBaseUnit = total / base.BaseQty
		record.LastPurchasePrice = &total
		record.LastPurchaseQty = &qty
		record.LastPurchaseUnit = &purchaseUnit
		record.PurchaseUnitCost = &unitCost
		record.PriceUpdatedAt = &stamp
		if math.IsInf(record.PricePerBaseUnit, 0) || math.IsNaN(record.PricePerBaseUnit) {
			return nil, &RowError{Row: row, Code: CodeConversionFailed, Message: "derived price is not finite"}
		}

		if pos, ok := positions[key]; ok {
			out[pos] = record
			continue
		}
		positions[key] = len(out)
		out = append(out, record)
	}
	return out, nil
}

func indexByName(catalog []models.Ingredient) map[string]models.Ingredient {
	index := make(map[string]models.Ingredient, len(catalog))
	for _, ingredient := range catalog {
		key := NormalizeName(ingredient.Name)
		if _, dup := index[key]; dup || key == "" {
			continue
		}
		index[key] = ingredient
	}
	return index
}

func selectionAt(selections []string, row int) string {
	if row < len(selections) {
		return selections[row]
	}
	return ""
}
