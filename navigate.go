package tofu

// Nav is a position in a chain from which a child scope can be opened. K is the
// builder EndChild will return to; T is the entity of the current scope.
//
// Go methods cannot introduce type parameters, so navigation is a pair of functions
// taking the position returned by a builder's Nav method:
//
//	tofu.HasChild(q.Where(AName.Eq("x")).Nav(), AB).Where(BFlag.Eq(true)).EndChild()
type Nav[K, T any] struct {
	scope *scope
	cont  K
}

// HasChild opens a child scope on the to-one association a.
func HasChild[K, T, C any](n Nav[K, T], a Association[T, C]) *ChildQuery[K, C] {
	return &ChildQuery[K, C]{scope: n.scope.child(a.name, entityName[C]()), cont: n.cont}
}

// HasChildren opens a child scope on the to-many association c.
func HasChildren[K, T, C any](n Nav[K, T], c Collection[T, C]) *ChildQuery[K, C] {
	return &ChildQuery[K, C]{scope: n.scope.child(c.name, entityName[C]()), cont: n.cont}
}
