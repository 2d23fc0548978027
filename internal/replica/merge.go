package replica

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quiltdb/quilt/internal/store"
)

// MergeResult reports what a merge did.
type MergeResult struct {
	Imported int   // ops newly imported from the peer
	LogSize  int64 // total ops after the merge
}

// Merge imports every op the peer holds into this replica, then
// rebuilds the record tables from the merged log.
//
// Import is idempotent: ops are content-addressed and inserted with
// ON CONFLICT DO NOTHING, so merging the same peer twice - or merging
// back ops the peer originally got from us - changes nothing.
//
// Import and rebuild run in a single transaction: a failure mid-merge
// leaves the replica exactly as it was.
//
// One-way: to synchronize two replicas fully, merge in both
// directions (see Sync).
func (r *Replica) Merge(ctx context.Context, peer *Replica, log zerolog.Logger) (MergeResult, error) {
	peerOps, err := store.ListOps(ctx, peer.store.DB())
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge: read peer ops: %w", err)
	}

	tx, err := r.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	imported := 0
	maxSeq := int64(0)
	for _, op := range peerOps {
		inserted, err := store.AppendOp(ctx, tx, op)
		if err != nil {
			return MergeResult{}, fmt.Errorf("merge: import op %s: %w", op.ID, err)
		}
		if inserted {
			imported++
		}
		if op.Seq > maxSeq {
			maxSeq = op.Seq
		}
	}

	// Rebuild only when the log actually changed; an empty import
	// means state is already current.
	if imported > 0 {
		if err := store.Rebuild(ctx, tx); err != nil {
			return MergeResult{}, fmt.Errorf("merge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return MergeResult{}, fmt.Errorf("merge: commit: %w", err)
	}

	// Local ops issued after the merge must sort after everything the
	// peer had already seen.
	r.clock.Observe(maxSeq)

	logSize, err := store.CountOps(ctx, r.store.DB())
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge: %w", err)
	}

	log.Info().
		Str("replica", r.id).
		Str("peer", peer.id).
		Int("imported", imported).
		Int64("log_size", logSize).
		Msg("merged peer ops")

	return MergeResult{Imported: imported, LogSize: logSize}, nil
}

// Sync merges both directions so the two replicas converge to the same
// op set and therefore identical record tables.
func Sync(ctx context.Context, a, b *Replica, log zerolog.Logger) error {
	if _, err := a.Merge(ctx, b, log); err != nil {
		return fmt.Errorf("sync %s<-%s: %w", a.id, b.id, err)
	}
	if _, err := b.Merge(ctx, a, log); err != nil {
		return fmt.Errorf("sync %s<-%s: %w", b.id, a.id, err)
	}
	return nil
}
