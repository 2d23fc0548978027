package store

import (
	"path/filepath"
	"testing"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// putOp builds a put op with its id computed.
func putOp(t *testing.T, replica string, seq int64, table, id string, fields record.Object) Op {
	t.Helper()
	op := Op{
		Replica:  replica,
		Seq:      seq,
		Table:    table,
		Kind:     KindPut,
		RecordID: id,
		Fields:   fields,
	}
	if err := op.ComputeID(); err != nil {
		t.Fatalf("ComputeID() failed: %v", err)
	}
	return op
}

// updateWhereOp builds a predicate update op with its id computed.
func updateWhereOp(t *testing.T, replica string, seq int64, table string, where query.Match, set query.Set) Op {
	t.Helper()
	op := Op{
		Replica: replica,
		Seq:     seq,
		Table:   table,
		Kind:    KindUpdateWhere,
		Where:   where,
		Set:     set,
	}
	if err := op.ComputeID(); err != nil {
		t.Fatalf("ComputeID() failed: %v", err)
	}
	return op
}
