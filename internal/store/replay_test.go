package store

import (
	"context"
	"testing"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
)

func TestRebuild_ReproducesIncrementalState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ops := []Op{
		putOp(t, "replica-a", 1, "lists", "l1", record.Object{
			"title": record.String("Groceries"), "realmId": record.String("alice"),
		}),
		putOp(t, "replica-a", 2, "todoItems", "i1", record.Object{
			"todoListId": record.String("l1"), "realmId": record.String("alice"), "done": record.Bool(false),
		}),
		updateWhereOp(t, "replica-a", 3, "todoItems",
			query.Match{"todoListId": record.String("l1"), "realmId": record.String("alice")},
			query.Set{"realmId": record.String("rlm~l1")}),
	}
	for _, op := range ops {
		if _, err := AppendOp(ctx, s.db, op); err != nil {
			t.Fatalf("AppendOp() failed: %v", err)
		}
		if err := ApplyOp(ctx, s.db, op); err != nil {
			t.Fatalf("ApplyOp() failed: %v", err)
		}
	}

	before, err := Select(ctx, s.db, "todoItems", nil)
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}

	if err := Rebuild(ctx, s.db); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	after, err := Select(ctx, s.db, "todoItems", nil)
	if err != nil {
		t.Fatalf("Select() after rebuild failed: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("rebuild changed record count: %d -> %d", len(before), len(after))
	}
	for i := range before {
		b, err := record.MarshalCanonical(before[i])
		if err != nil {
			t.Fatalf("marshal before: %v", err)
		}
		a, err := record.MarshalCanonical(after[i])
		if err != nil {
			t.Fatalf("marshal after: %v", err)
		}
		if string(b) != string(a) {
			t.Errorf("record %d diverged after rebuild:\n  before %s\n  after  %s", i, b, a)
		}
	}
}

func TestRebuild_ReplaysImportedOpsInCanonicalOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// A local op at seq 2 is applied first; then an op from another
	// replica at seq 1 arrives (as in a merge). Rebuild must order the
	// imported op before the local one.
	local := putOp(t, "replica-b", 2, "lists", "l1", record.Object{
		"title": record.String("local"),
	})
	imported := putOp(t, "replica-a", 1, "lists", "l1", record.Object{
		"title": record.String("imported"),
	})

	for _, op := range []Op{local, imported} {
		if _, err := AppendOp(ctx, s.db, op); err != nil {
			t.Fatalf("AppendOp() failed: %v", err)
		}
	}
	if err := Rebuild(ctx, s.db); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	got, err := Get(ctx, s.db, "lists", "l1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.GetString("title") != "local" {
		t.Errorf("title = %q, expected the higher-seq put to win the replay", got.GetString("title"))
	}
}

func TestRebuild_PredicateOpsReEvaluate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// The predicate op sits at seq 3. An item imported later but with
	// seq 2 must still be moved by it on rebuild.
	move := updateWhereOp(t, "replica-a", 3, "todoItems",
		query.Match{"todoListId": record.String("l1"), "realmId": record.String("alice")},
		query.Set{"realmId": record.String("rlm~l1")})
	lateItem := putOp(t, "replica-b", 2, "todoItems", "i9", record.Object{
		"todoListId": record.String("l1"), "realmId": record.String("alice"),
	})

	for _, op := range []Op{move, lateItem} {
		if _, err := AppendOp(ctx, s.db, op); err != nil {
			t.Fatalf("AppendOp() failed: %v", err)
		}
	}
	if err := Rebuild(ctx, s.db); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	got, err := Get(ctx, s.db, "todoItems", "i9")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.GetString("realmId") != "rlm~l1" {
		t.Errorf("realmId = %q, expected the predicate op to catch the item on replay", got.GetString("realmId"))
	}
}

func TestRebuild_ReassignmentCatchesLaterPuts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// The item's put sorts after the realm move (higher seq, as when a
	// peer keeps adding items offline while the list goes private).
	// Rebuild must still apply the move to it.
	move := updateWhereOp(t, "replica-a", 2, "todoItems",
		query.Match{"todoListId": record.String("l1"), "realmId": record.String("rlm~l1")},
		query.Set{"realmId": record.String("alice")})
	lateItem := putOp(t, "replica-b", 3, "todoItems", "i9", record.Object{
		"todoListId": record.String("l1"), "realmId": record.String("rlm~l1"),
	})
	// An item already past the move's predicate must not be touched.
	movedItem := putOp(t, "replica-b", 4, "todoItems", "i10", record.Object{
		"todoListId": record.String("l1"), "realmId": record.String("alice"),
	})

	for _, op := range []Op{move, lateItem, movedItem} {
		if _, err := AppendOp(ctx, s.db, op); err != nil {
			t.Fatalf("AppendOp() failed: %v", err)
		}
	}
	if err := Rebuild(ctx, s.db); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	for _, id := range []string{"i9", "i10"} {
		got, err := Get(ctx, s.db, "todoItems", id)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", id, err)
		}
		if got.GetString("realmId") != "alice" {
			t.Errorf("%s realmId = %q, expected the reassignment to cover later puts", id, got.GetString("realmId"))
		}
	}
}

func TestRebuild_PredicateDeleteDoesNotEraseLaterPuts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	purge := Op{
		Replica: "replica-a",
		Seq:     2,
		Table:   "members",
		Kind:    KindDeleteWhere,
		Where:   query.Match{"realmId": record.String("rlm~l1")},
	}
	if err := purge.ComputeID(); err != nil {
		t.Fatalf("ComputeID() failed: %v", err)
	}
	// A membership created after the purge (a re-invite) must survive
	// the replay.
	reinvite := putOp(t, "replica-a", 3, "members", "m1", record.Object{
		"realmId": record.String("rlm~l1"), "email": record.String("bob@demo"),
	})

	for _, op := range []Op{purge, reinvite} {
		if _, err := AppendOp(ctx, s.db, op); err != nil {
			t.Fatalf("AppendOp() failed: %v", err)
		}
	}
	if err := Rebuild(ctx, s.db); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	if _, err := Get(ctx, s.db, "members", "m1"); err != nil {
		t.Errorf("Get(m1) failed: %v, expected the later put to win over the predicate delete", err)
	}
}
