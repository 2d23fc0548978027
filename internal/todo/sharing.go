package todo

import (
	"context"
	"fmt"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/realm"
	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/txn"
)

// IsSharable reports whether the list currently lives in its tied
// realm.
func (s *Service) IsSharable(ctx context.Context, listID string) (bool, error) {
	var sharable bool
	err := s.coord.RunInTransaction(ctx, txn.ReadOnly, []txn.Table{tLists}, func(tx *txn.Tx) error {
		list, err := tx.Get(ctx, tLists, listID)
		if err != nil {
			return err
		}
		sharable = realm.IsSharable(list)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("is sharable %s: %w", listID, err)
	}
	return sharable, nil
}

// MakeSharable moves the list and its items into the list's tied realm
// and returns the realm id. Calling it on an already sharable list is
// a no-op that returns the same realm id.
func (s *Service) MakeSharable(ctx context.Context, listID string) (string, error) {
	var realmID string
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, []txn.Table{tLists, tItems, tRealms}, func(tx *txn.Tx) error {
		var err error
		realmID, err = s.makeSharable(ctx, tx, listID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("make sharable %s: %w", listID, err)
	}
	s.log.Info().Str("list", listID).Str("realm", realmID).Msg("made list sharable")
	return realmID, nil
}

// makeSharable runs the promotion inside an existing transaction. The
// transaction must have lists, todoItems and realms in scope.
func (s *Service) makeSharable(ctx context.Context, tx *txn.Tx, listID string) (string, error) {
	list, err := tx.Get(ctx, tLists, listID)
	if err != nil {
		return "", err
	}
	tied := realm.TiedRealmID(listID)
	if realm.IsSharable(list) {
		return tied, nil
	}
	oldRealm := list.GetString("realmId")
	title := list.GetString("title")

	// Upsert, not insert-or-fail: a peer replica may have created the
	// same tied realm offline and both creations must survive a merge.
	if err := tx.Put(ctx, tRealms, tied, realm.Realm(title)); err != nil {
		return "", err
	}
	if err := tx.Update(ctx, tLists, listID, query.Set{"realmId": record.String(tied)}); err != nil {
		return "", err
	}
	// Predicate-based move. Concurrent item edits on other replicas
	// merge with this instead of being overwritten by a stale snapshot.
	err = tx.ModifyWhere(ctx, tItems,
		query.Match{"todoListId": record.String(listID), "realmId": record.String(oldRealm)},
		query.Set{"realmId": record.String(tied)})
	if err != nil {
		return "", err
	}
	return tied, nil
}

// MakePrivate moves the list and its items back into the caller's
// personal realm, revokes every membership of the tied realm, and
// deletes the tied realm record. Calling it on an already private list
// is a no-op.
func (s *Service) MakePrivate(ctx context.Context, listID string) error {
	tables := []txn.Table{tLists, tItems, tMembers, tRealms}
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, tables, func(tx *txn.Tx) error {
		return s.makePrivate(ctx, tx, listID)
	})
	if err != nil {
		return fmt.Errorf("make private %s: %w", listID, err)
	}
	s.log.Info().Str("list", listID).Msg("made list private")
	return nil
}

// makePrivate runs the demotion inside an existing transaction. The
// transaction must have all four tables in scope.
//
// Item and list reassignment happen in the same transaction as
// membership revocation, so there is no observable state where items
// are private while memberships still grant access.
func (s *Service) makePrivate(ctx context.Context, tx *txn.Tx, listID string) error {
	list, err := tx.Get(ctx, tLists, listID)
	if err != nil {
		return err
	}
	oldRealm := list.GetString("realmId")
	personal := s.session.UserID
	if oldRealm == personal {
		return nil
	}

	err = tx.ModifyWhere(ctx, tItems,
		query.Match{"todoListId": record.String(listID), "realmId": record.String(oldRealm)},
		query.Set{"realmId": record.String(personal)})
	if err != nil {
		return err
	}
	if err := tx.Update(ctx, tLists, listID, query.Set{"realmId": record.String(personal)}); err != nil {
		return err
	}
	if err := tx.DeleteWhere(ctx, tMembers, query.Match{"realmId": record.String(oldRealm)}); err != nil {
		return err
	}
	return tx.Delete(ctx, tRealms, oldRealm)
}

// ShareWith invites email into the list's realm, promoting the list to
// sharable first if it is still private. The invitee gets the default
// grant: add items, toggle done. sendInvite controls whether an
// external invitation should be triggered by the sync layer; it does
// not change what is stored beyond the invite flag.
func (s *Service) ShareWith(ctx context.Context, listID, name, email string, sendInvite bool) error {
	if email == "" {
		return fmt.Errorf("share list %s: email must not be empty", listID)
	}
	tables := []txn.Table{tLists, tItems, tRealms, tMembers}
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, tables, func(tx *txn.Tx) error {
		realmID, err := s.makeSharable(ctx, tx, listID)
		if err != nil {
			return err
		}
		// The owner's own membership row makes the realm's member count
		// meaningful: one row means only the owner is left.
		ownerID := realm.MemberID(realmID, s.session.UserID)
		if err := tx.Put(ctx, tMembers, ownerID, realm.OwnerMembership(realmID, s.session.UserID, s.session.UserName)); err != nil {
			return err
		}
		m := realm.Membership(realmID, email, name)
		m["invite"] = record.Bool(sendInvite)
		return tx.Put(ctx, tMembers, realm.MemberID(realmID, email), m)
	})
	if err != nil {
		return fmt.Errorf("share list %s with %s: %w", listID, email, err)
	}
	s.log.Info().Str("list", listID).Str("email", email).Msg("shared list")
	return nil
}

// UnshareWith revokes email's membership of the list's realm. When at
// most the owner remains afterwards the realm carries no sharing value
// any more, so the list automatically reverts to private. That
// reversion is a state machine transition, not an error path.
func (s *Service) UnshareWith(ctx context.Context, listID, email string) error {
	tables := []txn.Table{tLists, tItems, tRealms, tMembers}
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, tables, func(tx *txn.Tx) error {
		tied := realm.TiedRealmID(listID)
		where := query.Match{"realmId": record.String(tied), "email": record.String(email)}
		if err := tx.DeleteWhere(ctx, tMembers, where); err != nil {
			return err
		}
		remaining, err := tx.Count(ctx, tMembers, query.Match{"realmId": record.String(tied)})
		if err != nil {
			return err
		}
		if remaining <= 1 {
			return s.makePrivate(ctx, tx, listID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unshare list %s from %s: %w", listID, email, err)
	}
	s.log.Info().Str("list", listID).Str("email", email).Msg("unshared list")
	return nil
}

// DeleteList removes the list, all its items, all memberships of its
// tied realm, and the tied realm record, whether or not the list was
// ever shared. Every step is a keyed or predicate delete, so deleting
// an absent or half-deleted list is an idempotent no-op.
func (s *Service) DeleteList(ctx context.Context, listID string) error {
	tied := realm.TiedRealmID(listID)
	tables := []txn.Table{tLists, tItems, tRealms, tMembers}
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, tables, func(tx *txn.Tx) error {
		if err := tx.DeleteWhere(ctx, tMembers, query.Match{"realmId": record.String(tied)}); err != nil {
			return err
		}
		if err := tx.DeleteWhere(ctx, tItems, query.Match{"todoListId": record.String(listID)}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, tRealms, tied); err != nil {
			return err
		}
		return tx.Delete(ctx, tLists, listID)
	})
	if err != nil {
		return fmt.Errorf("delete list %s: %w", listID, err)
	}
	s.log.Info().Str("list", listID).Msg("deleted list")
	return nil
}
