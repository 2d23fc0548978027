package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/querysql"
	"github.com/quiltdb/quilt/internal/record"
)

// Get reads one record by key. Returns ErrNotFound if absent.
func Get(ctx context.Context, q DBTX, table, id string) (record.Object, error) {
	var fieldsJSON string
	err := q.QueryRowContext(ctx, `
		SELECT fields FROM records WHERE tbl = ? AND id = ?
	`, table, id).Scan(&fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	return fields, nil
}

// Select reads every record of a table matching the predicate, in
// deterministic id order. A nil predicate selects the whole table.
func Select(ctx context.Context, q DBTX, table string, m query.Match) ([]record.Object, error) {
	sqlStr := `SELECT fields FROM records WHERE tbl = ?`
	args := []any{table}

	if m != nil {
		whereSQL, whereParams, err := querysql.CompileMatch(m)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", table, err)
		}
		sqlStr += " AND " + whereSQL
		args = append(args, whereParams...)
	}
	sqlStr += " ORDER BY " + querysql.StableOrder

	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var records []record.Object
	for rows.Next() {
		var fieldsJSON string
		if err := rows.Scan(&fieldsJSON); err != nil {
			return nil, fmt.Errorf("select %s: scan: %w", table, err)
		}
		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", table, err)
		}
		records = append(records, fields)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: iterate: %w", table, err)
	}

	if records == nil {
		records = []record.Object{}
	}
	return records, nil
}

// Count returns the number of records of a table matching the
// predicate. A nil predicate counts the whole table.
func Count(ctx context.Context, q DBTX, table string, m query.Match) (int64, error) {
	sqlStr := `SELECT COUNT(*) FROM records WHERE tbl = ?`
	args := []any{table}

	if m != nil {
		whereSQL, whereParams, err := querysql.CompileMatch(m)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		sqlStr += " AND " + whereSQL
		args = append(args, whereParams...)
	}

	var count int64
	if err := q.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// ListOps returns the full operation log in canonical replay order:
// seq, then replica id, then op id. This order is a pure function of
// the op set, so two replicas holding the same ops list them
// identically.
func ListOps(ctx context.Context, q DBTX) ([]Op, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, payload FROM ops
		ORDER BY seq ASC, replica_id ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list ops: %w", err)
	}
	defer rows.Close()

	var ops []Op
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("list ops: scan: %w", err)
		}
		op, err := decodeOp(id, payload)
		if err != nil {
			return nil, fmt.Errorf("list ops: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ops: iterate: %w", err)
	}

	if ops == nil {
		ops = []Op{}
	}
	return ops, nil
}

// MaxSeq returns the highest seq in the op log, 0 if the log is empty.
// Used to resume the Lamport clock after open and after merge.
func MaxSeq(ctx context.Context, q DBTX) (int64, error) {
	var maxSeq int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ops
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return maxSeq, nil
}

// CountOps returns the size of the op log.
func CountOps(ctx context.Context, q DBTX) (int64, error) {
	var count int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ops`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ops: %w", err)
	}
	return count, nil
}
