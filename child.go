package tofu

// ChildQuery is the builder of a nested scope over an association of type T.
// EndChild returns K, the builder navigation started from.
type ChildQuery[K, T any] struct {
	scope *scope
	cont  K
}

// Where adds r to the child scope.
func (q *ChildQuery[K, T]) Where(r Restriction[T]) *ChildConjunction[K, T] {
	q.scope.restrict(r.Predicate)
	return &ChildConjunction[K, T]{scope: q.scope, cont: q.cont}
}

// OrderBy starts an ordering clause on m within the child scope.
func (q *ChildQuery[K, T]) OrderBy(m Member[T]) *OrderBy[*ChildQuery[K, T], T] {
	return &OrderBy[*ChildQuery[K, T], T]{scope: q.scope, name: nameOf(m), back: q}
}

// WithFetchModeOn sets the fetch strategy for the association m of T.
func (q *ChildQuery[K, T]) WithFetchModeOn(m Member[T], mode FetchMode) *ChildQuery[K, T] {
	q.scope.fetch(nameOf(m), mode)
	return q
}

// Nav is the navigation point for a nested child scope.
func (q *ChildQuery[K, T]) Nav() Nav[*ChildConjunction[K, T], T] {
	return Nav[*ChildConjunction[K, T], T]{scope: q.scope, cont: &ChildConjunction[K, T]{scope: q.scope, cont: q.cont}}
}

// Path returns the association path from the root, for example "Customer.Address".
func (q *ChildQuery[K, T]) Path() string { return q.scope.path }

// Err returns the first error recorded by the query, if any.
func (q *ChildQuery[K, T]) Err() error { return q.scope.chain.err }

// EndChild leaves the child scope. It does not touch the criteria.
func (q *ChildQuery[K, T]) EndChild() K { return q.cont }

// ChildConjunction is the child builder after at least one restriction or nested scope.
type ChildConjunction[K, T any] struct {
	scope *scope
	cont  K
}

// And adds r to the child scope.
func (c *ChildConjunction[K, T]) And(r Restriction[T]) *ChildConjunction[K, T] {
	c.scope.restrict(r.Predicate)
	return c
}

// Nav is the navigation point for a nested child scope. Ending it returns here.
func (c *ChildConjunction[K, T]) Nav() Nav[*ChildConjunction[K, T], T] {
	return Nav[*ChildConjunction[K, T], T]{scope: c.scope, cont: c}
}

// Path returns the association path from the root.
func (c *ChildConjunction[K, T]) Path() string { return c.scope.path }

// Err returns the first error recorded by the query, if any.
func (c *ChildConjunction[K, T]) Err() error { return c.scope.chain.err }

// EndChild leaves the child scope. It does not touch the criteria.
func (c *ChildConjunction[K, T]) EndChild() K { return c.cont }
