// Package replica binds a store to a device identity and provides
// offline merge.
//
// Each database file is one replica: it has a stable UUIDv7 replica
// id, an owning user, and a Lamport clock resumed from the op log on
// open. Two replicas that exchange ops (in either or both directions)
// and rebuild converge to identical record tables, because replay
// order is a pure function of the merged op set.
//
// The sync engine proper - transport, authentication, server-side
// fan-out - is an external collaborator; this package only implements
// the local half: idempotent op import and deterministic rebuild.
package replica
