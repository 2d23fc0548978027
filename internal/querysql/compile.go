package querysql

import (
	"fmt"
	"strings"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
)

// This package compiles the portable predicate/mutation fragment to
// parameterized SQLite SQL over JSON record rows.
//
// Record rows live in a single table with their fields stored as a
// JSON TEXT column, so predicates compile to json_extract comparisons
// and mutations compile to nested json_set calls.
//
// Values are ALWAYS parameterized, never interpolated. Field names are
// embedded in JSON path literals and therefore validated against a
// strict identifier alphabet before compilation.

// StableOrder is the ORDER BY clause every record query must carry.
// COLLATE BINARY keeps text ordering identical across SQLite builds,
// which keeps replay and query results deterministic.
const StableOrder = "id COLLATE BINARY ASC"

// CompileMatch compiles a predicate to a WHERE fragment over the
// fields column. Returns (sql, params, error).
//
// Example output for Match{"realmId": ..., "listId": ...}:
//
//	json_extract(fields, '$.listId') = ? AND json_extract(fields, '$.realmId') = ?
func CompileMatch(m query.Match) (string, []any, error) {
	if err := query.ValidateMatch(m); err != nil {
		return "", nil, fmt.Errorf("compile predicate: %w", err)
	}

	var parts []string
	var params []any
	for _, f := range m.SortedFields() {
		if err := validateFieldName(f); err != nil {
			return "", nil, fmt.Errorf("compile predicate: %w", err)
		}
		param, err := valueToParam(m[f])
		if err != nil {
			return "", nil, fmt.Errorf("compile predicate field %q: %w", f, err)
		}
		parts = append(parts, fmt.Sprintf("json_extract(fields, '$.%s') = ?", f))
		params = append(params, param)
	}

	return strings.Join(parts, " AND "), params, nil
}

// CompileSet compiles a mutation to a json_set expression over the
// fields column. Returns (expr, params, error).
//
// Each assigned value is passed as JSON text wrapped in json(?) so the
// stored field keeps its JSON type (true stays true, not 1).
//
// Example output for Set{"realmId": ..., "done": ...}:
//
//	json_set(json_set(fields, '$.done', json(?)), '$.realmId', json(?))
func CompileSet(s query.Set) (string, []any, error) {
	if err := query.ValidateSet(s); err != nil {
		return "", nil, fmt.Errorf("compile mutation: %w", err)
	}

	expr := "fields"
	var params []any
	for _, f := range s.SortedFields() {
		if err := validateFieldName(f); err != nil {
			return "", nil, fmt.Errorf("compile mutation: %w", err)
		}
		jsonText, err := record.MarshalValue(s[f])
		if err != nil {
			return "", nil, fmt.Errorf("compile mutation field %q: %w", f, err)
		}
		expr = fmt.Sprintf("json_set(%s, '$.%s', json(?))", expr, f)
		params = append(params, string(jsonText))
	}

	return expr, params, nil
}

// valueToParam converts a record value to a Go native type for use as
// a SQL parameter. json_extract returns TEXT for strings, INTEGER for
// ints, and 1/0 for booleans; the driver binds these Go types the same
// way, so equality comparisons line up.
func valueToParam(v record.Value) (any, error) {
	switch val := v.(type) {
	case record.String:
		return string(val), nil
	case record.Int:
		return int64(val), nil
	case record.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// validateFieldName restricts field names to a safe identifier
// alphabet. Field names become part of JSON path string literals, so
// anything outside this set is rejected rather than escaped.
func validateFieldName(f string) error {
	if f == "" {
		return fmt.Errorf("empty field name")
	}
	for _, r := range f {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return fmt.Errorf("invalid character %q in field name %q", r, f)
		}
	}
	return nil
}
