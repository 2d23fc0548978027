package replica

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quiltdb/quilt/internal/store"
)

// Replica is one device's copy of a quilt database: the backing store,
// the replica's identity, and its Lamport clock.
//
// The replica id is a UUIDv7 generated on first open and persisted in
// the store's meta table. It tie-breaks op ordering between replicas,
// so it must be stable for the lifetime of the database file.
type Replica struct {
	store  *store.Store
	id     string
	userID string
	clock  *Clock
}

// Open opens (or initializes) the replica at path for the given user.
//
// First open generates and persists the replica id and user identity;
// later opens reuse them and resume the clock from the op log's max
// seq. userID may be empty on reopen; a non-empty userID on a replica
// initialized for another user is an error - one database file belongs
// to one user's device.
func Open(ctx context.Context, path, userID, userName string) (*Replica, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replica: %w", err)
	}

	id, err := s.GetMeta(ctx, store.MetaReplicaID)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open replica: %w", err)
	}
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
		if err := s.SetMeta(ctx, store.MetaReplicaID, id); err != nil {
			s.Close()
			return nil, fmt.Errorf("open replica: %w", err)
		}
	}

	storedUser, err := s.GetMeta(ctx, store.MetaUserID)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open replica: %w", err)
	}
	switch {
	case storedUser == "" && userID != "":
		if err := s.SetMeta(ctx, store.MetaUserID, userID); err != nil {
			s.Close()
			return nil, fmt.Errorf("open replica: %w", err)
		}
		if userName != "" {
			if err := s.SetMeta(ctx, store.MetaUserName, userName); err != nil {
				s.Close()
				return nil, fmt.Errorf("open replica: %w", err)
			}
		}
		storedUser = userID
	case storedUser == "" && userID == "":
		s.Close()
		return nil, fmt.Errorf("open replica: database not initialized and no user given")
	case userID != "" && userID != storedUser:
		s.Close()
		return nil, fmt.Errorf("open replica: database belongs to user %q, not %q", storedUser, userID)
	}

	maxSeq, err := store.MaxSeq(ctx, s.DB())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open replica: %w", err)
	}

	return &Replica{
		store:  s,
		id:     id,
		userID: storedUser,
		clock:  NewClockAt(maxSeq),
	}, nil
}

// Close closes the underlying store.
func (r *Replica) Close() error {
	return r.store.Close()
}

// Store returns the backing store.
func (r *Replica) Store() *store.Store {
	return r.store
}

// ID returns the replica's stable identity.
func (r *Replica) ID() string {
	return r.id
}

// UserID returns the owning user's id (their personal realm id).
func (r *Replica) UserID() string {
	return r.userID
}

// Clock returns the replica's Lamport clock.
func (r *Replica) Clock() *Clock {
	return r.clock
}
