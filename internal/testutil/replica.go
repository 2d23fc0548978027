package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/store"
	"github.com/quiltdb/quilt/internal/todo"
	"github.com/quiltdb/quilt/internal/txn"
)

// OpenReplica opens a fresh replica in a temp directory for the given
// user and registers cleanup. replicaID pins the replica identity;
// pass "" to let the replica generate a UUIDv7.
//
// Pinned ids matter for determinism: the replica id tie-breaks replay
// order between same-seq ops, so tests that merge replicas and compare
// against golden output must control it.
func OpenReplica(t *testing.T, userID, userName, replicaID string) *replica.Replica {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quilt.db")

	if replicaID != "" {
		s, err := store.Open(path)
		if err != nil {
			t.Fatalf("open store for replica id pin: %v", err)
		}
		if err := s.SetMeta(ctx, store.MetaReplicaID, replicaID); err != nil {
			t.Fatalf("pin replica id: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close store after pin: %v", err)
		}
	}

	rep, err := replica.Open(ctx, path, userID, userName)
	if err != nil {
		t.Fatalf("open replica: %v", err)
	}
	t.Cleanup(func() {
		if err := rep.Close(); err != nil {
			t.Errorf("close replica: %v", err)
		}
	})
	return rep
}

// NewService builds a todo service over the replica with a sequential
// id generator prefixed by the replica id, so created records are
// deterministic per replica and distinct across replicas.
func NewService(t *testing.T, rep *replica.Replica) *todo.Service {
	t.Helper()
	coord := txn.NewCoordinator(rep)
	svc, err := todo.NewService(coord,
		todo.Session{UserID: rep.UserID()},
		NewSequentialIDGenerator(rep.ID()),
		zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}
