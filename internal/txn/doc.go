// Package txn implements the transaction coordinator: atomic,
// isolated units of store work scoped to a declared set of tables.
//
// One device, one writer discipline: per-table locks serialize the
// bodies of overlapping transactions, and a single SQLite transaction
// underneath makes each body all-or-nothing. An error anywhere in a
// body rolls back every mutation the body made - including its op-log
// appends, so the log can never describe state that was not committed.
//
// No operation here is cancellable mid-body and no retries happen at
// this layer; failures surface to the immediate caller.
package txn
