package aggregates

import (
	"fmt"
	"strings"
)

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means write methods open and commit their own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ConcurrencyGuard names how an aggregate serializes competing writers.
type ConcurrencyGuard string

const (
	// GuardRowLockCAS locks the row and re-checks a version column on update.
	GuardRowLockCAS ConcurrencyGuard = "row_lock_cas"
	// GuardUpsertThenLock creates the row idempotently, then locks it.
	GuardUpsertThenLock ConcurrencyGuard = "upsert_then_lock"
)

// Contract describes the write-path expectations of one aggregate.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	Guard            ConcurrencyGuard
	// Operations lists the op names reported to hooks.
	Operations []string
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Owns reports whether op belongs to this aggregate.
func (c Contract) Owns(op string) bool {
	for _, o := range c.Operations {
		if o == op {
			return true
		}
	}
	return false
}

func (c Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("aggregate contract: empty name")
	}
	if c.Guard == "" {
		return fmt.Errorf("aggregate contract %s: no concurrency guard", c.Name)
	}
	prefix := c.Name + "."
	for _, op := range c.Operations {
		if !strings.HasPrefix(op, prefix) {
			return fmt.Errorf("aggregate contract %s: op %q outside namespace", c.Name, op)
		}
	}
	return nil
}
