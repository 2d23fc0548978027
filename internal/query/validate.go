package query

import (
	"fmt"

	"github.com/quiltdb/quilt/internal/record"
)

// ValidateMatch checks that a predicate is well-formed:
// at least one condition (predicate ops must be scoped to some key
// range, never table-wide), non-empty field names, scalar values only.
func ValidateMatch(m Match) error {
	if len(m) == 0 {
		return fmt.Errorf("predicate must have at least one condition")
	}
	for f, v := range m {
		if f == "" {
			return fmt.Errorf("predicate field name must not be empty")
		}
		if err := validateScalar(f, v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSet checks that a mutation is well-formed:
// at least one assignment, non-empty field names, scalar values only.
// The record's "id" field is immutable; mutating it would break
// content-addressed op replay.
func ValidateSet(s Set) error {
	if len(s) == 0 {
		return fmt.Errorf("mutation must assign at least one field")
	}
	for f, v := range s {
		if f == "" {
			return fmt.Errorf("mutation field name must not be empty")
		}
		if f == "id" {
			return fmt.Errorf("mutation must not assign the id field")
		}
		if err := validateScalar(f, v); err != nil {
			return err
		}
	}
	return nil
}

// validateScalar restricts predicate/mutation values to scalars.
// Arrays and objects cannot be compared or assigned via json_extract /
// json_set parameters portably, and nothing in the domain needs them.
func validateScalar(field string, v record.Value) error {
	switch v.(type) {
	case record.String, record.Int, record.Bool:
		return nil
	case nil:
		return fmt.Errorf("field %q: value must not be nil", field)
	default:
		return fmt.Errorf("field %q: value must be a scalar (string, int, bool), got %T", field, v)
	}
}
