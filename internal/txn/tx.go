package txn

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/store"
)

// Tx is the handle a transaction body uses to reach its declared
// tables.
//
// Every mutating call does two things in the enclosing SQL
// transaction: it applies the change to the records table AND appends
// the corresponding op to the log. A rollback therefore discards both
// - state and log never diverge.
//
// All mutations complete before the method returns; nothing is
// deferred past commit.
type Tx struct {
	sqlTx  *sql.Tx
	rep    *replica.Replica
	mode   Mode
	tables map[Table]bool
}

func (t *Tx) checkTable(table Table) error {
	if !t.tables[table] {
		return fmt.Errorf("table %q not declared in transaction scope", table)
	}
	return nil
}

func (t *Tx) checkWrite(table Table) error {
	if t.mode != ReadWrite {
		return fmt.Errorf("mutation on table %q in read-only transaction", table)
	}
	return t.checkTable(table)
}

// Get reads one record by key. Returns store.ErrNotFound if absent.
func (t *Tx) Get(ctx context.Context, table Table, id string) (record.Object, error) {
	if err := t.checkTable(table); err != nil {
		return nil, err
	}
	return store.Get(ctx, t.sqlTx, string(table), id)
}

// Select reads every record matching the predicate (nil = all), in
// deterministic id order.
func (t *Tx) Select(ctx context.Context, table Table, where query.Match) ([]record.Object, error) {
	if err := t.checkTable(table); err != nil {
		return nil, err
	}
	return store.Select(ctx, t.sqlTx, string(table), where)
}

// Count returns the number of records matching the predicate
// (nil = all).
func (t *Tx) Count(ctx context.Context, table Table, where query.Match) (int64, error) {
	if err := t.checkTable(table); err != nil {
		return 0, err
	}
	return store.Count(ctx, t.sqlTx, string(table), where)
}

// Put inserts or replaces a record. Upsert, never fail-on-exists:
// records at derived keys (tied realms) are created independently on
// offline replicas and both creations must succeed.
func (t *Tx) Put(ctx context.Context, table Table, id string, fields record.Object) error {
	if err := t.checkWrite(table); err != nil {
		return err
	}
	return t.record(ctx, store.Op{
		Table:    string(table),
		Kind:     store.KindPut,
		RecordID: id,
		Fields:   fields,
	})
}

// Update patches fields on one record by key. No-op if the record
// does not exist.
func (t *Tx) Update(ctx context.Context, table Table, id string, set query.Set) error {
	if err := t.checkWrite(table); err != nil {
		return err
	}
	return t.record(ctx, store.Op{
		Table:    string(table),
		Kind:     store.KindUpdate,
		RecordID: id,
		Set:      set,
	})
}

// Delete removes one record by key. Deleting an absent record is a
// no-op, not an error.
func (t *Tx) Delete(ctx context.Context, table Table, id string) error {
	if err := t.checkWrite(table); err != nil {
		return err
	}
	return t.record(ctx, store.Op{
		Table:    string(table),
		Kind:     store.KindDelete,
		RecordID: id,
	})
}

// ModifyWhere applies a field mutation to every record matching the
// predicate - the consistent-mutation operator. The predicate and
// mutation (not the matched rows) go into the op log, so a peer
// replaying this op applies it to ITS records matching the predicate -
// including records it created without having seen the op (see
// store.Rebuild) - and concurrent edits merge instead of being
// overwritten by a stale snapshot.
func (t *Tx) ModifyWhere(ctx context.Context, table Table, where query.Match, set query.Set) error {
	if err := t.checkWrite(table); err != nil {
		return err
	}
	return t.record(ctx, store.Op{
		Table: string(table),
		Kind:  store.KindUpdateWhere,
		Where: where,
		Set:   set,
	})
}

// DeleteWhere removes every record matching the predicate. Matching
// zero records is a no-op, not an error.
func (t *Tx) DeleteWhere(ctx context.Context, table Table, where query.Match) error {
	if err := t.checkWrite(table); err != nil {
		return err
	}
	return t.record(ctx, store.Op{
		Table: string(table),
		Kind:  store.KindDeleteWhere,
		Where: where,
	})
}

// record stamps, logs, and applies an op inside the transaction.
func (t *Tx) record(ctx context.Context, op store.Op) error {
	op.Replica = t.rep.ID()
	op.Seq = t.rep.Clock().Next()
	if err := op.ComputeID(); err != nil {
		return err
	}
	if _, err := store.AppendOp(ctx, t.sqlTx, op); err != nil {
		return err
	}
	return store.ApplyOp(ctx, t.sqlTx, op)
}
