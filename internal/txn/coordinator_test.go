package txn

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/store"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	rep, err := replica.Open(context.Background(), path, "alice@demo", "")
	if err != nil {
		t.Fatalf("open replica: %v", err)
	}
	t.Cleanup(func() { rep.Close() })
	return NewCoordinator(rep)
}

func TestRunInTransaction_CommitsMutationAndOp(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	err := c.RunInTransaction(ctx, ReadWrite, []Table{"lists"}, func(tx *Tx) error {
		return tx.Put(ctx, "lists", "l1", record.Object{"title": record.String("Groceries")})
	})
	if err != nil {
		t.Fatalf("RunInTransaction() failed: %v", err)
	}

	got, err := store.Get(ctx, c.Replica().Store().DB(), "lists", "l1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.GetString("title") != "Groceries" {
		t.Errorf("title = %q", got.GetString("title"))
	}

	count, err := store.CountOps(ctx, c.Replica().Store().DB())
	if err != nil {
		t.Fatalf("CountOps() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("op count = %d, expected the mutation to be logged", count)
	}
}

func TestRunInTransaction_ErrorRollsBackStateAndLog(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := c.RunInTransaction(ctx, ReadWrite, []Table{"lists", "todoItems"}, func(tx *Tx) error {
		if err := tx.Put(ctx, "lists", "l1", record.Object{"title": record.String("x")}); err != nil {
			return err
		}
		if err := tx.Put(ctx, "todoItems", "i1", record.Object{"todoListId": record.String("l1")}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTransaction() error = %v, expected the body's error", err)
	}

	db := c.Replica().Store().DB()
	if _, err := store.Get(ctx, db, "lists", "l1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("list survived a rolled-back transaction")
	}
	count, err := store.CountOps(ctx, db)
	if err != nil {
		t.Fatalf("CountOps() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("op count = %d, rollback must discard logged ops too", count)
	}
}

func TestRunInTransaction_UndeclaredTableRejected(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	err := c.RunInTransaction(ctx, ReadWrite, []Table{"lists"}, func(tx *Tx) error {
		return tx.Put(ctx, "realms", "r1", record.Object{"name": record.String("x")})
	})
	if err == nil {
		t.Fatal("mutation on undeclared table succeeded")
	}

	err = c.RunInTransaction(ctx, ReadWrite, []Table{"lists"}, func(tx *Tx) error {
		_, err := tx.Select(ctx, "realms", nil)
		return err
	})
	if err == nil {
		t.Fatal("read on undeclared table succeeded")
	}
}

func TestRunInTransaction_ReadOnlyRejectsMutations(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	err := c.RunInTransaction(ctx, ReadOnly, []Table{"lists"}, func(tx *Tx) error {
		return tx.Delete(ctx, "lists", "l1")
	})
	if err == nil {
		t.Fatal("mutation in read-only transaction succeeded")
	}
}

func TestRunInTransaction_RequiresTables(t *testing.T) {
	c := newTestCoordinator(t)

	err := c.RunInTransaction(context.Background(), ReadWrite, nil, func(tx *Tx) error {
		return nil
	})
	if err == nil {
		t.Fatal("transaction without declared tables succeeded")
	}
}

func TestRunInTransaction_SerializesOverlappingBodies(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	// Many concurrent transactions over the same tables, each doing a
	// read-then-write of a counter field. Serialized bodies must not
	// lose increments.
	err := c.RunInTransaction(ctx, ReadWrite, []Table{"lists"}, func(tx *Tx) error {
		return tx.Put(ctx, "lists", "l1", record.Object{"n": record.Int(0)})
	})
	if err != nil {
		t.Fatalf("seed transaction failed: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.RunInTransaction(ctx, ReadWrite, []Table{"lists", "todoItems"}, func(tx *Tx) error {
				got, err := tx.Get(ctx, "lists", "l1")
				if err != nil {
					return err
				}
				n, ok := got["n"].(record.Int)
				if !ok {
					return fmt.Errorf("n decoded as %T", got["n"])
				}
				return tx.Update(ctx, "lists", "l1", query.Set{"n": record.Int(int64(n) + 1)})
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("worker transaction failed: %v", err)
		}
	}

	got, err := store.Get(ctx, c.Replica().Store().DB(), "lists", "l1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got["n"] != record.Int(workers) {
		t.Errorf("n = %v, expected %d (lost increments)", got["n"], workers)
	}
}
