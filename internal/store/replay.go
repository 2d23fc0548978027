package store

import (
	"context"
	"fmt"
)

// Rebuild rematerializes the records tables from the op log.
//
// The log is replayed in canonical (seq, replica, id) order against an
// empty state. Predicate ops re-evaluate their predicate during this
// replay, so a predicate op from one replica picks up records created
// concurrently on another - the consistent-mutation contract: "for
// every record satisfying P at merge time, apply M".
//
// Canonical order alone is not enough for that contract: a record whose
// put sorts after an update_where would escape it, stranding, say, an
// item added offline in a realm the list has already left. So every put
// additionally replays the update_where ops that came before it, in
// order, against just the new record. Field reassignments form a chain
// (each predicate matches only the value the previous one wrote), so
// replaying the prefix against a record that already carries a value
// from the chain lands on the chain's end and is a no-op for records
// that were live when the ops first applied.
//
// delete_where ops are NOT re-applied to later puts: there is no
// counter-op that could bring a record back, so re-applying them would
// erase records legitimately created afterwards (re-inviting a member
// after an unshare, for instance). A put sorting after a delete_where
// wins, which is the same last-writer-wins rule put replay follows
// everywhere else.
//
// Replay order is a pure function of the op set, so any two replicas
// holding the same ops materialize byte-identical tables.
//
// Must be called inside a transaction (pass the *sql.Tx) so a failure
// mid-replay cannot leave half-materialized state.
func Rebuild(ctx context.Context, q DBTX) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("rebuild: clear records: %w", err)
	}

	ops, err := ListOps(ctx, q)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	reassigns := make(map[string][]Op)
	for _, op := range ops {
		if err := ApplyOp(ctx, q, op); err != nil {
			return fmt.Errorf("rebuild: op %s: %w", op.ID, err)
		}
		switch op.Kind {
		case KindUpdateWhere:
			reassigns[op.Table] = append(reassigns[op.Table], op)
		case KindPut:
			for _, prev := range reassigns[op.Table] {
				if err := applyUpdateWhereToRecord(ctx, q, prev, op.RecordID); err != nil {
					return fmt.Errorf("rebuild: op %s onto %s: %w", prev.ID, op.RecordID, err)
				}
			}
		}
	}

	return nil
}
