// Package query defines the predicate and mutation forms used by the
// consistent-mutation operator.
//
// A Match is a conjunction of field equalities; a Set is a list of
// field assignments. Both are deliberately restricted to scalar values
// so they serialize losslessly into the operation log and evaluate
// identically on any replica - the predicate travels, not a row
// snapshot. Richer filters (ranges, disjunctions, joins) are out of
// the portable fragment because no record-store operation needs them
// and every added form is another thing replay must keep bit-stable.
package query
