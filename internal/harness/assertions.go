package harness

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/quiltdb/quilt/internal/record"
)

// applyAssertions evaluates every assertion against final state and
// records failures on the result.
func (r *runner) applyAssertions(ctx context.Context, result *Result, scenario *Scenario) {
	for i, a := range scenario.Assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = r.assertFinalState(ctx, &a)
		case AssertStateCount:
			err = r.assertStateCount(ctx, &a)
		case AssertConverged:
			err = r.assertConverged(ctx, &a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
}

// assertFinalState selects records by the where filter and
// subset-matches the expect fields against every one of them. Zero
// matching records is a failure: an assertion about nothing proves
// nothing.
func (r *runner) assertFinalState(ctx context.Context, a *Assertion) error {
	rows, err := r.selectState(ctx, a.Replica, a.Table, a.Where)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no records in %s/%s match %v", a.Replica, a.Table, a.Where)
	}
	expect := resolveMap(a.Expect, r.vars)
	for _, row := range rows {
		for field, want := range expect {
			got, ok := row[field]
			if !ok {
				return fmt.Errorf("record %v in %s/%s has no field %q", row["id"], a.Replica, a.Table, field)
			}
			if !looselyEqual(got, want) {
				return fmt.Errorf("record %v in %s/%s: field %q = %v, want %v", row["id"], a.Replica, a.Table, field, got, want)
			}
		}
	}
	return nil
}

func (r *runner) assertStateCount(ctx context.Context, a *Assertion) error {
	rows, err := r.selectState(ctx, a.Replica, a.Table, a.Where)
	if err != nil {
		return err
	}
	if len(rows) != a.Count {
		return fmt.Errorf("%s/%s matching %v: got %d records, want %d", a.Replica, a.Table, a.Where, len(rows), a.Count)
	}
	return nil
}

// assertConverged checks that every listed replica holds byte-identical
// record tables.
func (r *runner) assertConverged(ctx context.Context, a *Assertion) error {
	type dump struct {
		name   string
		tables map[string][]byte
	}
	dumps := make([]dump, 0, len(a.Replicas))
	for _, name := range a.Replicas {
		rep, err := r.rep(name)
		if err != nil {
			return err
		}
		tables, err := dumpTables(ctx, rep.Store().DB())
		if err != nil {
			return fmt.Errorf("replica %s: %w", name, err)
		}
		dumps = append(dumps, dump{name: name, tables: tables})
	}
	base := dumps[0]
	for _, d := range dumps[1:] {
		for _, tbl := range domainTables {
			if !bytes.Equal(base.tables[tbl], d.tables[tbl]) {
				return fmt.Errorf("table %s differs between %s and %s", tbl, base.name, d.name)
			}
		}
	}
	return nil
}

// looselyEqual compares a stored value against a YAML expectation.
// YAML integers arrive as int while stored integers round-trip as
// int64, so numeric comparison goes through canonical record values.
func looselyEqual(got, want any) bool {
	gv, errG := record.FromGo(got)
	wv, errW := record.FromGo(want)
	if errG != nil || errW != nil {
		return reflect.DeepEqual(got, want)
	}
	gb, errG := record.MarshalCanonical(gv)
	wb, errW := record.MarshalCanonical(wv)
	if errG != nil || errW != nil {
		return reflect.DeepEqual(got, want)
	}
	return bytes.Equal(gb, wb)
}
