package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator hands out "prefix-1", "prefix-2", ... in order.
//
// Production code uses UUIDv7 ids; tests inject this generator so the
// same scenario produces byte-identical records on every run, which is
// what golden snapshot comparison needs.
//
// Thread-safe via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
// An empty prefix defaults to "test".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID returns the next id in sequence.
func (g *SequentialIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence. After Reset the next id is "prefix-1"
// again.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
