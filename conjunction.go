package tofu

import (
	"context"

	"github.com/google/uuid"
)

// Conjunction is the root builder after at least one restriction or child scope.
// It accepts further restrictions, child navigation, or execution.
type Conjunction[R, T any] struct {
	root *rootScope[R, T]
}

// And adds r to the root scope.
func (c *Conjunction[R, T]) And(r Restriction[T]) *Conjunction[R, T] {
	c.root.scope.restrict(r.Predicate)
	return c
}

// Nav is the navigation point for HasChild and HasChildren. Ending the child scope
// returns here.
func (c *Conjunction[R, T]) Nav() Nav[*Conjunction[R, T], T] {
	return Nav[*Conjunction[R, T], T]{scope: c.root.scope, cont: c}
}

// ID returns the query identifier.
func (c *Conjunction[R, T]) ID() uuid.UUID { return c.root.scope.chain.id }

// Err returns the first error recorded while building, if any.
func (c *Conjunction[R, T]) Err() error { return c.root.scope.chain.err }

// Execute runs the query with the same semantics as Query.Execute, including any
// pagination window set before the first restriction.
func (c *Conjunction[R, T]) Execute(ctx context.Context) (R, error) {
	return c.root.execute(ctx)
}
