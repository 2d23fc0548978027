// Package store provides SQLite-backed durable storage for one
// replica of a quilt database.
//
// The store holds two things:
//   - records: materialized rows for every table, with fields as a
//     JSON object column queried via json_extract
//   - ops: the append-only operation log the records are derived from
//
// The op log is the source of truth. Every local mutation is recorded
// as an op in the same transaction that applies it; merging with a
// peer imports the peer's ops (idempotently, via content-addressed op
// IDs and ON CONFLICT DO NOTHING) and rebuilds the records tables by
// replaying the merged log in canonical (seq, replica, id) order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Op IDs are computed in internal/record using RFC 8785 canonical JSON
// and SHA-256 with domain separation. Op payloads are stored as Core
// Deterministic CBOR.
package store
