package query

import (
	"sort"

	"github.com/quiltdb/quilt/internal/record"
)

// Match is a predicate: a conjunction of field equality conditions.
// A record satisfies the predicate iff every listed field equals the
// given value. This is the portable fragment the op log can carry -
// it serializes to a plain record object, so a predicate recorded on
// one replica evaluates identically on every other replica at merge
// time.
//
// Example:
//
//	query.Match{
//	  "realmId": record.String("rlm~abc"),
//	  "listId":  record.String("abc"),
//	}
type Match map[string]record.Value

// Set is a mutation: fields to assign on every matched record.
// Fields not listed are left untouched, which is what makes concurrent
// predicate-mutations on disjoint fields merge without loss.
type Set map[string]record.Value

// SortedFields returns the predicate's field names in sorted order.
// Compilation and serialization must iterate in this order so the
// same logical predicate always produces the same SQL and the same
// canonical bytes.
func (m Match) SortedFields() []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// SortedFields returns the mutation's field names in sorted order.
func (s Set) SortedFields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ToObject converts the predicate to a record object for op-log
// serialization.
func (m Match) ToObject() record.Object {
	obj := make(record.Object, len(m))
	for f, v := range m {
		obj[f] = v
	}
	return obj
}

// ToObject converts the mutation to a record object for op-log
// serialization.
func (s Set) ToObject() record.Object {
	obj := make(record.Object, len(s))
	for f, v := range s {
		obj[f] = v
	}
	return obj
}

// MatchFromObject reconstructs a predicate from its op-log form.
func MatchFromObject(obj record.Object) Match {
	m := make(Match, len(obj))
	for f, v := range obj {
		m[f] = v
	}
	return m
}

// SetFromObject reconstructs a mutation from its op-log form.
func SetFromObject(obj record.Object) Set {
	s := make(Set, len(obj))
	for f, v := range obj {
		s[f] = v
	}
	return s
}
