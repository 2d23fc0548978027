package store

import (
	"context"
	"fmt"

	"github.com/quiltdb/quilt/internal/querysql"
	"github.com/quiltdb/quilt/internal/record"
)

// AppendOp inserts an op into the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: op IDs are
// content-addressed, so re-importing an op a peer already sent (or
// that we already hold) is silently ignored. Returns whether a new
// row was inserted.
func AppendOp(ctx context.Context, q DBTX, op Op) (bool, error) {
	if op.ID == "" {
		return false, fmt.Errorf("append op: missing id (call ComputeID first)")
	}
	if err := op.Validate(); err != nil {
		return false, fmt.Errorf("append op: %w", err)
	}

	payload, err := encodeOp(op)
	if err != nil {
		return false, fmt.Errorf("append op: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO ops (id, replica_id, seq, tbl, kind, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		op.ID,
		op.Replica,
		op.Seq,
		op.Table,
		string(op.Kind),
		payload,
	)
	if err != nil {
		return false, fmt.Errorf("append op: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append op: rows affected: %w", err)
	}
	return rows > 0, nil
}

// ApplyOp applies an op's mutation to the records table.
//
// Apply is decoupled from append so replay can re-apply imported ops:
// local mutations do both inside one transaction, merge replays apply
// only.
//
// Kind semantics:
//   - put: insert-or-replace the full record (upsert, never
//     fail-on-exists - independent creations of the same derived key
//     must both succeed)
//   - update: patch fields of one record; no-op if the record is gone
//   - update_where: patch fields of every record matching the
//     predicate at apply time
//   - delete: remove one record; no-op if absent
//   - delete_where: remove every record matching the predicate at
//     apply time
func ApplyOp(ctx context.Context, q DBTX, op Op) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("apply op: %w", err)
	}

	switch op.Kind {
	case KindPut:
		return applyPut(ctx, q, op)
	case KindUpdate:
		return applyUpdate(ctx, q, op)
	case KindUpdateWhere:
		return applyUpdateWhere(ctx, q, op)
	case KindDelete:
		return applyDelete(ctx, q, op)
	case KindDeleteWhere:
		return applyDeleteWhere(ctx, q, op)
	default:
		return fmt.Errorf("apply op: unknown kind %q", op.Kind)
	}
}

func applyPut(ctx context.Context, q DBTX, op Op) error {
	// The id is duplicated into the fields JSON so predicates can
	// match on it and rows decode self-contained.
	fields := op.Fields.Clone()
	fields["id"] = record.String(op.RecordID)

	fieldsJSON, err := marshalFields(fields)
	if err != nil {
		return fmt.Errorf("apply put: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO records (tbl, id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT(tbl, id) DO UPDATE SET fields = excluded.fields
	`, op.Table, op.RecordID, fieldsJSON)
	if err != nil {
		return fmt.Errorf("apply put: %w", err)
	}
	return nil
}

func applyUpdate(ctx context.Context, q DBTX, op Op) error {
	setExpr, setParams, err := querysql.CompileSet(op.Set)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	args := append(setParams, op.Table, op.RecordID)
	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE records SET fields = %s WHERE tbl = ? AND id = ?
	`, setExpr), args...)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

func applyUpdateWhere(ctx context.Context, q DBTX, op Op) error {
	setExpr, setParams, err := querysql.CompileSet(op.Set)
	if err != nil {
		return fmt.Errorf("apply update_where: %w", err)
	}
	whereSQL, whereParams, err := querysql.CompileMatch(op.Where)
	if err != nil {
		return fmt.Errorf("apply update_where: %w", err)
	}

	args := append(setParams, op.Table)
	args = append(args, whereParams...)
	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE records SET fields = %s WHERE tbl = ? AND %s
	`, setExpr, whereSQL), args...)
	if err != nil {
		return fmt.Errorf("apply update_where: %w", err)
	}
	return nil
}

// applyUpdateWhereToRecord applies an update_where op to a single
// record, used by replay to catch records whose put sorts after the op.
func applyUpdateWhereToRecord(ctx context.Context, q DBTX, op Op, recordID string) error {
	setExpr, setParams, err := querysql.CompileSet(op.Set)
	if err != nil {
		return fmt.Errorf("apply update_where to record: %w", err)
	}
	whereSQL, whereParams, err := querysql.CompileMatch(op.Where)
	if err != nil {
		return fmt.Errorf("apply update_where to record: %w", err)
	}

	args := append(setParams, op.Table, recordID)
	args = append(args, whereParams...)
	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE records SET fields = %s WHERE tbl = ? AND id = ? AND %s
	`, setExpr, whereSQL), args...)
	if err != nil {
		return fmt.Errorf("apply update_where to record: %w", err)
	}
	return nil
}

func applyDelete(ctx context.Context, q DBTX, op Op) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM records WHERE tbl = ? AND id = ?
	`, op.Table, op.RecordID)
	if err != nil {
		return fmt.Errorf("apply delete: %w", err)
	}
	return nil
}

func applyDeleteWhere(ctx context.Context, q DBTX, op Op) error {
	whereSQL, whereParams, err := querysql.CompileMatch(op.Where)
	if err != nil {
		return fmt.Errorf("apply delete_where: %w", err)
	}

	args := append([]any{op.Table}, whereParams...)
	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM records WHERE tbl = ? AND %s
	`, whereSQL), args...)
	if err != nil {
		return fmt.Errorf("apply delete_where: %w", err)
	}
	return nil
}
