// Package harness runs multi-replica sharing scenarios described in
// YAML.
//
// A scenario declares replicas (each a fresh database owned by a
// user), a step sequence of list operations and syncs, and assertions
// over final state. The harness pins replica ids and record ids so a
// scenario produces identical traces on every run; golden files under
// testdata/golden capture the expected trace and state byte-exactly.
//
// After the steps run, the harness additionally checks the structural
// invariants every replica must satisfy (well-formed content-addressed
// ops, state agreeing with log replay) before evaluating the
// scenario's own assertions.
package harness
