// Package record defines the constrained value model shared by the
// store, the query IR, and the operation log.
//
// Field values are limited to string, int64, bool, array, and object
// (plus null when round-tripping stored rows). Floats are forbidden
// everywhere: op identity is a SHA-256 over RFC 8785 canonical JSON,
// and float formatting differences would split identical logical ops
// into distinct log entries across replicas.
//
// Canonical JSON here follows RFC 8785: UTF-16 key ordering, NFC
// normalized strings, no HTML escaping. Content-addressed op IDs are
// computed with domain separation so a hash from one context can never
// collide with a hash from another.
package record
