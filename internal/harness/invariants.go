package harness

import (
	"bytes"
	"context"
	"fmt"

	"github.com/quiltdb/quilt/internal/realm"
	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/store"
)

// domainTables are the record tables the sharing model uses.
var domainTables = []string{
	realm.TableLists,
	realm.TableItems,
	realm.TableRealms,
	realm.TableMembers,
}

// CheckInvariants verifies the properties that must hold on any
// replica at any quiescent point, regardless of what was merged:
//
//  1. Every op in the log is well formed and stored under its own
//     content hash.
//  2. The record tables equal a full replay of the op log. Incremental
//     apply and replay must agree, otherwise two replicas with the
//     same log could disagree on state.
//
// Returns a description of each violation found; empty means clean.
func CheckInvariants(ctx context.Context, rep *replica.Replica) []string {
	var violations []string
	db := rep.Store().DB()

	ops, err := store.ListOps(ctx, db)
	if err != nil {
		return []string{fmt.Sprintf("list ops: %v", err)}
	}
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			violations = append(violations, fmt.Sprintf("op %s invalid: %v", op.ID, err))
			continue
		}
		recomputed := op
		recomputed.ID = ""
		if err := recomputed.ComputeID(); err != nil {
			violations = append(violations, fmt.Sprintf("op %s: recompute id: %v", op.ID, err))
			continue
		}
		if recomputed.ID != op.ID {
			violations = append(violations, fmt.Sprintf("op %s stored under wrong hash (want %s)", op.ID, recomputed.ID))
		}
	}

	replayViolations, err := checkReplayAgreement(ctx, rep)
	if err != nil {
		violations = append(violations, fmt.Sprintf("replay check: %v", err))
	}
	violations = append(violations, replayViolations...)
	return violations
}

// checkReplayAgreement rebuilds state from the log inside a
// transaction, compares against current state, then rolls back.
func checkReplayAgreement(ctx context.Context, rep *replica.Replica) ([]string, error) {
	tx, err := rep.Store().DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	before, err := dumpTables(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := store.Rebuild(ctx, tx); err != nil {
		return nil, err
	}
	after, err := dumpTables(ctx, tx)
	if err != nil {
		return nil, err
	}

	var violations []string
	for _, tbl := range domainTables {
		if !bytes.Equal(before[tbl], after[tbl]) {
			violations = append(violations, fmt.Sprintf("table %s diverges from log replay", tbl))
		}
	}
	return violations, nil
}

func dumpTables(ctx context.Context, q store.DBTX) (map[string][]byte, error) {
	out := make(map[string][]byte, len(domainTables))
	for _, tbl := range domainTables {
		objs, err := store.Select(ctx, q, tbl, nil)
		if err != nil {
			return nil, err
		}
		arr := make(record.Array, len(objs))
		for i, o := range objs {
			arr[i] = o
		}
		data, err := record.MarshalCanonical(arr)
		if err != nil {
			return nil, err
		}
		out[tbl] = data
	}
	return out, nil
}
