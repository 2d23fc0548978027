// Package realm defines the access-control vocabulary: realms as the
// unit of sharing, memberships as invitations into a realm, and the
// tied-realm derivation that lets offline replicas agree on realm
// identity without coordination.
//
// A private object carries no realm (or a foreign one); a sharable
// object lives in the realm tied to its own id. Sharability is a
// property of where the object sits, not a flag on the object.
package realm
