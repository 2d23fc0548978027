package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOp = "quilt/op/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OpID computes the content-addressed ID of an operation-log entry.
// The ID is a pure function of the op's canonical form, so two
// replicas exchanging the same op compute the same ID and duplicate
// imports collapse to a single log row.
func OpID(payload Object) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("OpID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOp, canonical), nil
}

// MustOpID is like OpID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOpID(payload Object) string {
	id, err := OpID(payload)
	if err != nil {
		panic(err)
	}
	return id
}
