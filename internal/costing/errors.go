package costing

import (
	"fmt"

	"subrecetas/internal/units"
)

// UnitMismatchError reports a unit that is incompatible with an entity's base unit.
type UnitMismatchError struct {
	Entity   string
	ID       string
	Expected units.Unit
	Got      units.Unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("incompatible unit for %s %q: expected %s, got %s", e.Entity, e.ID, e.Expected, e.Got)
}

// MissingEntityError reports a reference to an id absent from the catalog snapshot.
type MissingEntityError struct {
	Entity string
	ID     string
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Entity, e.ID)
}
