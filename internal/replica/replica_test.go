package replica

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/store"
)

func openTestReplica(t *testing.T, user string) *Replica {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	rep, err := Open(context.Background(), path, user, "")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { rep.Close() })
	return rep
}

func appendPut(t *testing.T, rep *Replica, table, id string, fields record.Object) store.Op {
	t.Helper()
	ctx := context.Background()
	op := store.Op{
		Replica:  rep.ID(),
		Seq:      rep.Clock().Next(),
		Table:    table,
		Kind:     store.KindPut,
		RecordID: id,
		Fields:   fields,
	}
	if err := op.ComputeID(); err != nil {
		t.Fatalf("ComputeID() failed: %v", err)
	}
	if _, err := store.AppendOp(ctx, rep.Store().DB(), op); err != nil {
		t.Fatalf("AppendOp() failed: %v", err)
	}
	if err := store.ApplyOp(ctx, rep.Store().DB(), op); err != nil {
		t.Fatalf("ApplyOp() failed: %v", err)
	}
	return op
}

func TestOpen_PersistsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	rep, err := Open(ctx, path, "alice@demo", "Alice")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	id := rep.ID()
	if id == "" {
		t.Fatal("replica id is empty")
	}
	rep.Close()

	// Reopen without a user: identity comes from the file.
	rep, err = Open(ctx, path, "", "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer rep.Close()

	if rep.ID() != id {
		t.Errorf("replica id changed across opens: %s -> %s", id, rep.ID())
	}
	if rep.UserID() != "alice@demo" {
		t.Errorf("user = %q, expected alice@demo", rep.UserID())
	}
}

func TestOpen_RejectsWrongUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	rep, err := Open(ctx, path, "alice@demo", "")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	rep.Close()

	_, err = Open(ctx, path, "bob@demo", "")
	if err == nil {
		t.Fatal("Open() with wrong user succeeded, expected error")
	}
	if !strings.Contains(err.Error(), "belongs to user") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpen_RequiresUserOnFirstOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	if _, err := Open(context.Background(), path, "", ""); err == nil {
		t.Fatal("Open() of uninitialized database without user succeeded")
	}
}

func TestOpen_ResumesClockFromLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	rep, err := Open(ctx, path, "alice@demo", "")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		appendPut(t, rep, "lists", "l1", record.Object{"title": record.String("x")})
	}
	rep.Close()

	rep, err = Open(ctx, path, "", "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer rep.Close()

	if got := rep.Clock().Next(); got != 4 {
		t.Errorf("first seq after reopen = %d, expected 4", got)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	ctx := context.Background()
	a := openTestReplica(t, "alice@demo")
	b := openTestReplica(t, "alice@demo")

	appendPut(t, a, "lists", "l1", record.Object{"title": record.String("Groceries")})

	res, err := b.Merge(ctx, a, zerolog.Nop())
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if res.Imported != 1 {
		t.Errorf("first merge imported %d ops, expected 1", res.Imported)
	}

	res, err = b.Merge(ctx, a, zerolog.Nop())
	if err != nil {
		t.Fatalf("second Merge() failed: %v", err)
	}
	if res.Imported != 0 {
		t.Errorf("repeat merge imported %d ops, expected 0", res.Imported)
	}
	if res.LogSize != 1 {
		t.Errorf("log size = %d, expected 1", res.LogSize)
	}
}

func TestMerge_AdvancesClockPastPeer(t *testing.T) {
	ctx := context.Background()
	a := openTestReplica(t, "alice@demo")
	b := openTestReplica(t, "alice@demo")

	for i := 0; i < 5; i++ {
		appendPut(t, a, "lists", "l1", record.Object{"title": record.String("x")})
	}

	if _, err := b.Merge(ctx, a, zerolog.Nop()); err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}

	// Local ops issued after the merge must sort after everything
	// imported from the peer.
	if got := b.Clock().Next(); got != 6 {
		t.Errorf("seq after merge = %d, expected 6", got)
	}
}

func TestSync_Converges(t *testing.T) {
	ctx := context.Background()
	a := openTestReplica(t, "alice@demo")
	b := openTestReplica(t, "alice@demo")

	appendPut(t, a, "lists", "l1", record.Object{"title": record.String("from a")})
	appendPut(t, b, "lists", "l2", record.Object{"title": record.String("from b")})

	if err := Sync(ctx, a, b, zerolog.Nop()); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	for _, rep := range []*Replica{a, b} {
		records, err := store.Select(ctx, rep.Store().DB(), "lists", nil)
		if err != nil {
			t.Fatalf("Select() failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("replica %s holds %d lists, expected 2", rep.ID(), len(records))
		}
	}

	aDump := canonicalLists(t, a)
	bDump := canonicalLists(t, b)
	if aDump != bDump {
		t.Errorf("replicas diverged:\n  a: %s\n  b: %s", aDump, bDump)
	}
}

func canonicalLists(t *testing.T, rep *Replica) string {
	t.Helper()
	records, err := store.Select(context.Background(), rep.Store().DB(), "lists", nil)
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	arr := make(record.Array, len(records))
	for i, r := range records {
		arr[i] = r
	}
	data, err := record.MarshalCanonical(arr)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	return string(data)
}
