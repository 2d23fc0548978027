package realm

import (
	"fmt"
	"strings"

	"github.com/quiltdb/quilt/internal/record"
)

// Record table names. Declared once here so transaction scopes and the
// service layer agree on spelling.
const (
	TableLists   = "lists"
	TableItems   = "todoItems"
	TableRealms  = "realms"
	TableMembers = "members"
)

// TiedPrefix marks realm ids derived from an object id.
const TiedPrefix = "rlm~"

// TiedRealmID derives the realm id tied to the given list. The
// derivation is pure: every replica that shares the same list computes
// the same realm id with no coordination, so realms created offline on
// two devices collapse into one on merge.
func TiedRealmID(listID string) string {
	return TiedPrefix + listID
}

// IsTied reports whether realmID was derived from some object id.
func IsTied(realmID string) bool {
	return strings.HasPrefix(realmID, TiedPrefix)
}

// IsSharable reports whether the list record lives in its tied realm.
// A list with no realmId field, or whose realmId is anything other
// than its own tied realm id, is private.
func IsSharable(list record.Object) bool {
	id := list.GetString("id")
	if id == "" {
		return false
	}
	return list.GetString("realmId") == TiedRealmID(id)
}

// Realm builds the realm record for a sharable list. The realm's name
// mirrors the list title at the moment of sharing; it is a label, not
// a key, and is not kept in sync with later renames.
func Realm(name string) record.Object {
	return record.Object{
		"name":       record.String(name),
		"represents": record.String("a to-do list"),
	}
}

// MemberID derives a deterministic membership key so that inviting the
// same user to the same realm twice, on any replicas, converges to one
// membership row.
func MemberID(realmID, email string) string {
	return fmt.Sprintf("mmb~%s~%s", realmID, email)
}

// Membership builds an invitation record granting email access to
// realmID under the default item grant.
func Membership(realmID, email, name string) record.Object {
	m := record.Object{
		"realmId":     record.String(realmID),
		"email":       record.String(email),
		"invite":      record.Bool(true),
		"permissions": DefaultGrant(),
	}
	if name != "" {
		m["name"] = record.String(name)
	}
	return m
}

// OwnerMembership builds the realm owner's own membership row. Owners
// hold full rights through realm ownership; the row exists so member
// listings and counts include them.
func OwnerMembership(realmID, userID, name string) record.Object {
	m := record.Object{
		"realmId": record.String(realmID),
		"userId":  record.String(userID),
		"email":   record.String(userID),
		"owner":   record.Bool(true),
	}
	if name != "" {
		m["name"] = record.String(name)
	}
	return m
}

// DefaultGrant is the permission set handed to invited members: they
// may add items to the shared list and toggle the done flag on
// existing items, nothing else. The list record itself stays under the
// owner's control.
func DefaultGrant() record.Object {
	return record.Object{
		"add": record.Array{record.String(TableItems)},
		"update": record.Object{
			TableItems: record.Array{record.String("done")},
		},
	}
}
