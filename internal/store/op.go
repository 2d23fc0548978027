package store

import (
	"fmt"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
)

// Kind identifies the mutation an op carries.
type Kind string

// Op kinds. put and delete address a single record by key;
// update patches fields on a single record; the _where variants are
// the consistent-mutation operator - they carry a predicate that is
// re-evaluated wherever the op is replayed.
const (
	KindPut         Kind = "put"
	KindUpdate      Kind = "update"
	KindUpdateWhere Kind = "update_where"
	KindDelete      Kind = "delete"
	KindDeleteWhere Kind = "delete_where"
)

// Op is one entry of the operation log. Every local mutation is
// recorded as an Op in the same transaction that applies it, and merge
// imports peer Ops verbatim. State is always derivable by replaying
// the full log in canonical (Seq, Replica, ID) order.
type Op struct {
	ID      string // content-addressed, computed from the other fields
	Replica string // origin replica
	Seq     int64  // origin Lamport sequence
	Table   string
	Kind    Kind

	RecordID string        // put, update, delete
	Fields   record.Object // put: full record
	Set      query.Set     // update, update_where
	Where    query.Match   // update_where, delete_where
}

// canonicalPayload builds the canonical object the op ID is computed
// from. Field presence mirrors the kind; absent parts are omitted, not
// null, because canonical JSON forbids null.
func (op Op) canonicalPayload() record.Object {
	obj := record.Object{
		"replica": record.String(op.Replica),
		"seq":     record.Int(op.Seq),
		"table":   record.String(op.Table),
		"kind":    record.String(string(op.Kind)),
	}
	if op.RecordID != "" {
		obj["record_id"] = record.String(op.RecordID)
	}
	if op.Fields != nil {
		obj["fields"] = op.Fields
	}
	if op.Set != nil {
		obj["set"] = op.Set.ToObject()
	}
	if op.Where != nil {
		obj["where"] = op.Where.ToObject()
	}
	return obj
}

// ComputeID computes and assigns the op's content-addressed ID.
func (op *Op) ComputeID() error {
	id, err := record.OpID(op.canonicalPayload())
	if err != nil {
		return fmt.Errorf("compute op id: %w", err)
	}
	op.ID = id
	return nil
}

// Validate checks structural well-formedness for the op's kind.
func (op Op) Validate() error {
	if op.Replica == "" {
		return fmt.Errorf("op missing replica")
	}
	if op.Seq <= 0 {
		return fmt.Errorf("op seq must be positive, got %d", op.Seq)
	}
	if op.Table == "" {
		return fmt.Errorf("op missing table")
	}

	switch op.Kind {
	case KindPut:
		if op.RecordID == "" {
			return fmt.Errorf("put op missing record id")
		}
		if len(op.Fields) == 0 {
			return fmt.Errorf("put op missing fields")
		}
	case KindUpdate:
		if op.RecordID == "" {
			return fmt.Errorf("update op missing record id")
		}
		if err := query.ValidateSet(op.Set); err != nil {
			return fmt.Errorf("update op: %w", err)
		}
	case KindUpdateWhere:
		if err := query.ValidateMatch(op.Where); err != nil {
			return fmt.Errorf("update_where op: %w", err)
		}
		if err := query.ValidateSet(op.Set); err != nil {
			return fmt.Errorf("update_where op: %w", err)
		}
	case KindDelete:
		if op.RecordID == "" {
			return fmt.Errorf("delete op missing record id")
		}
	case KindDeleteWhere:
		if err := query.ValidateMatch(op.Where); err != nil {
			return fmt.Errorf("delete_where op: %w", err)
		}
	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}

	return nil
}
