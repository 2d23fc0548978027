package todo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/realm"
	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/txn"
)

// Session identifies the caller. UserID doubles as the caller's
// personal realm id: private objects live in the realm named by the
// owning user's id.
type Session struct {
	UserID   string
	UserName string
}

// IDGenerator produces ids for new lists and items.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator is the production id generator. UUIDv7 ids are
// unique across replicas without coordination and sort roughly by
// creation time.
type UUIDv7Generator struct{}

// NewID returns a fresh UUIDv7 string.
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Service exposes the to-do list operations over a coordinator and a
// session. It holds no mutable state of its own; every operation runs
// in its own transaction and all shared state lives in the store.
type Service struct {
	coord   *txn.Coordinator
	session Session
	ids     IDGenerator
	log     zerolog.Logger
}

// NewService creates a service for the given session. A nil ids
// generator defaults to UUIDv7Generator; tests inject a deterministic
// one.
func NewService(coord *txn.Coordinator, session Session, ids IDGenerator, log zerolog.Logger) (*Service, error) {
	if session.UserID == "" {
		return nil, fmt.Errorf("session requires a user id")
	}
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Service{coord: coord, session: session, ids: ids, log: log}, nil
}

// Session returns the session this service acts as.
func (s *Service) Session() Session {
	return s.session
}

const (
	tLists   = txn.Table(realm.TableLists)
	tItems   = txn.Table(realm.TableItems)
	tRealms  = txn.Table(realm.TableRealms)
	tMembers = txn.Table(realm.TableMembers)
)

// CreateList creates a private list owned by the session user and
// returns its id.
func (s *Service) CreateList(ctx context.Context, title string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("create list: title must not be empty")
	}
	id := s.ids.NewID()
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, []txn.Table{tLists}, func(tx *txn.Tx) error {
		return tx.Put(ctx, tLists, id, record.Object{
			"title":   record.String(title),
			"owner":   record.String(s.session.UserID),
			"realmId": record.String(s.session.UserID),
		})
	})
	if err != nil {
		return "", fmt.Errorf("create list: %w", err)
	}
	s.log.Debug().Str("list", id).Str("title", title).Msg("created list")
	return id, nil
}

// AddItem adds an item to the list and returns the item id. The item
// inherits the list's realm, so items added to a shared list are
// immediately visible to every member.
func (s *Service) AddItem(ctx context.Context, listID, title string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("add item: title must not be empty")
	}
	id := s.ids.NewID()
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, []txn.Table{tLists, tItems}, func(tx *txn.Tx) error {
		list, err := tx.Get(ctx, tLists, listID)
		if err != nil {
			return err
		}
		realmID := list.GetString("realmId")
		return tx.Put(ctx, tItems, id, record.Object{
			"title":      record.String(title),
			"done":       record.Bool(false),
			"todoListId": record.String(listID),
			"realmId":    record.String(realmID),
		})
	})
	if err != nil {
		return "", fmt.Errorf("add item to list %s: %w", listID, err)
	}
	return id, nil
}

// SetDone toggles an item's done flag.
func (s *Service) SetDone(ctx context.Context, itemID string, done bool) error {
	err := s.coord.RunInTransaction(ctx, txn.ReadWrite, []txn.Table{tItems}, func(tx *txn.Tx) error {
		if _, err := tx.Get(ctx, tItems, itemID); err != nil {
			return err
		}
		return tx.Update(ctx, tItems, itemID, query.Set{"done": record.Bool(done)})
	})
	if err != nil {
		return fmt.Errorf("set done on item %s: %w", itemID, err)
	}
	return nil
}

// Lists returns every list, in id order.
func (s *Service) Lists(ctx context.Context) ([]record.Object, error) {
	var out []record.Object
	err := s.coord.RunInTransaction(ctx, txn.ReadOnly, []txn.Table{tLists}, func(tx *txn.Tx) error {
		var err error
		out, err = tx.Select(ctx, tLists, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	return out, nil
}

// Items returns the list's items, in id order.
func (s *Service) Items(ctx context.Context, listID string) ([]record.Object, error) {
	var out []record.Object
	err := s.coord.RunInTransaction(ctx, txn.ReadOnly, []txn.Table{tItems}, func(tx *txn.Tx) error {
		var err error
		out, err = tx.Select(ctx, tItems, query.Match{"todoListId": record.String(listID)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list items of %s: %w", listID, err)
	}
	return out, nil
}

// Members returns the membership records of the list's tied realm, in
// id order. A private list has none.
func (s *Service) Members(ctx context.Context, listID string) ([]record.Object, error) {
	tied := realm.TiedRealmID(listID)
	var out []record.Object
	err := s.coord.RunInTransaction(ctx, txn.ReadOnly, []txn.Table{tMembers}, func(tx *txn.Tx) error {
		var err error
		out, err = tx.Select(ctx, tMembers, query.Match{"realmId": record.String(tied)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", listID, err)
	}
	return out, nil
}
