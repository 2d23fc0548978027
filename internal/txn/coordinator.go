package txn

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/quiltdb/quilt/internal/replica"
)

// Table names a record table a transaction declares up front.
type Table string

// Mode declares a transaction's intent.
type Mode int

const (
	// ReadWrite transactions may mutate their declared tables.
	ReadWrite Mode = iota
	// ReadOnly transactions reject mutating calls; they still take
	// the declared table locks so they observe a consistent snapshot
	// relative to local writers.
	ReadOnly
)

// Coordinator groups store operations into atomic, isolated units
// scoped to a declared set of tables.
//
// Within one device, the bodies of concurrently issued transactions
// that touch overlapping tables never interleave: each transaction
// acquires a per-table lock for every declared table before its body
// runs. Locks are acquired in sorted table order, so two transactions
// with overlapping scopes cannot deadlock.
//
// Cross-table invariants (an item's realm matching its list's realm,
// memberships implying a realm) are protected only by this scoping -
// there are no other locks in the system.
type Coordinator struct {
	rep *replica.Replica

	mu    sync.Mutex
	locks map[Table]*sync.Mutex
}

// NewCoordinator creates a coordinator over the given replica.
func NewCoordinator(rep *replica.Replica) *Coordinator {
	return &Coordinator{
		rep:   rep,
		locks: make(map[Table]*sync.Mutex),
	}
}

// Replica returns the underlying replica.
func (c *Coordinator) Replica() *replica.Replica {
	return c.rep
}

// RunInTransaction runs body as one atomic unit over the declared
// tables. Everything body does through the Tx either commits together
// or rolls back together: any error from body aborts the transaction
// and is returned to the caller unchanged.
//
// body must route every store access through the Tx it is given;
// touching undeclared tables is an error.
func (c *Coordinator) RunInTransaction(ctx context.Context, mode Mode, tables []Table, body func(tx *Tx) error) error {
	if len(tables) == 0 {
		return fmt.Errorf("transaction must declare at least one table")
	}

	locks := c.acquireOrder(tables)
	for _, l := range locks {
		l.Lock()
	}
	defer func() {
		// Release in reverse acquisition order.
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	sqlTx, err := c.rep.Store().DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	tx := &Tx{
		sqlTx:  sqlTx,
		rep:    c.rep,
		mode:   mode,
		tables: make(map[Table]bool, len(tables)),
	}
	for _, t := range tables {
		tx.tables[t] = true
	}

	if err := body(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// acquireOrder returns the lock for every declared table, deduplicated
// and in sorted table order.
func (c *Coordinator) acquireOrder(tables []Table) []*sync.Mutex {
	names := make([]string, 0, len(tables))
	seen := make(map[Table]bool, len(tables))
	for _, t := range tables {
		if !seen[t] {
			seen[t] = true
			names = append(names, string(t))
		}
	}
	sort.Strings(names)

	c.mu.Lock()
	defer c.mu.Unlock()

	locks := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		l, ok := c.locks[Table(name)]
		if !ok {
			l = &sync.Mutex{}
			c.locks[Table(name)] = l
		}
		locks = append(locks, l)
	}
	return locks
}
