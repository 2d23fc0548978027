// Package todo implements the sharing operations of a to-do list
// application on top of the realm model and the transaction
// coordinator.
//
// A list is Private or Sharable. Private lists live in the owner's
// personal realm; sharable lists live in the realm tied to their own
// id. MakeSharable and MakePrivate move a list (and its items) between
// the two states, ShareWith and UnshareWith manage memberships, and
// unsharing the last invited member automatically privatizes the list
// again.
//
// Every operation assumes it may run concurrently with a peer
// replica's version of the same operation and be merged later: realm
// creation upserts, bulk item moves are predicate ops, and membership
// keys are deterministic.
package todo
