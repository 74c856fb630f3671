package catalog

import (
	"fmt"
	"strings"
)

// Validation rules reported by ValidationError.
const (
	RuleRequired       = "required"
	RuleQuantity       = "quantity"
	RuleUnit           = "unit"
	RuleNesting        = "nesting"
	RuleReference      = "reference"
	RulePrice          = "price"
	RuleKind           = "kind"
	RuleBaseUnitLocked = "base_unit_locked"
)

// ValidationError names the batch-level invariant a save violated. Item is the
// zero-based index of the offending item, or -1 for entity-level fields.
type ValidationError struct {
	Entity  string
	ID      string
	Item    int
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Entity)
	if e.ID != "" {
		fmt.Fprintf(&b, " %q", e.ID)
	}
	if e.Item >= 0 {
		fmt.Fprintf(&b, " item %d", e.Item+1)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " %s", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

func entityError(entity, id, field, rule, message string) *ValidationError {
	return &ValidationError{Entity: entity, ID: id, Item: -1, Field: field, Rule: rule, Message: message}
}

func itemError(entity, id string, item int, field, rule, message string) *ValidationError {
	return &ValidationError{Entity: entity, ID: id, Item: item, Field: field, Rule: rule, Message: message}
}
