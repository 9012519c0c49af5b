// Package tofu provides a typed, fluent query builder over a criteria engine.
//
// Tofu lets callers filter, order, and paginate queries against an entity graph,
// including nested filters on related entities, using typed property references
// instead of column strings. Every builder call is translated immediately into a
// call against a Criteria scope; Execute shapes the result as a single entity, a
// count, or a list depending on the entry point used.
//
// # Quick Start
//
// Declare properties and associations once, next to the model:
//
//	type Order struct {
//	    ID       int64     `db:"id" constraints:"primarykey"`
//	    Status   string    `db:"status"`
//	    Customer *Customer `db:"-" ref:"customer_id"`
//	}
//
//	var (
//	    OrderStatus   = tofu.Prop(func(o *Order) *string { return &o.Status })
//	    OrderCustomer = tofu.ToOne(func(o *Order) **Customer { return &o.Customer })
//	    CustomerName  = tofu.Prop(func(c *Customer) *string { return &c.Name })
//	)
//
// Build and run a query:
//
//	orders, err := tofu.HasChild(
//	    tofu.GetAll[Order](ctx, session).
//	        MaxResults(20).
//	        Where(OrderStatus.Eq("open")).
//	        Nav(),
//	    OrderCustomer,
//	).
//	    Where(CustomerName.ILike("a%")).
//	    EndChild().
//	    Execute(ctx)
//
// # Errors
//
// Builder methods do not return errors. Builders share one error slot per query:
// the first failure is kept, later calls do nothing, and Execute returns it without
// touching the engine. An engine rejecting a restriction, an order, or a child
// scope is therefore reported by Execute, not by the call that caused it. Call Err
// on any builder to check right after a step:
//
//	q := tofu.GetAll[Order](ctx, session).Where(OrderStatus.Eq("open"))
//	if err := q.Err(); err != nil {
//	    return err
//	}
//
// Builders wrap a scope that is mutated in place, so a chain must not be used from
// more than one goroutine.
package tofu

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// rootScope is the part of a query shared by Query and Conjunction.
type rootScope[R, T any] struct {
	scope *scope
	shape shape[T, R]
}

func (r *rootScope[R, T]) execute(ctx context.Context) (R, error) {
	var zero R
	c := r.scope.chain
	if !c.usable() {
		capitan.Error(ctx, QueryFailed,
			KeyQuery.Field(c.id.String()),
			KeyEntity.Field(c.entity),
			KeyShape.Field(r.shape.kind().String()),
			KeyError.Field(c.err.Error()),
		)
		return zero, c.err
	}
	c.executed = true

	start := time.Now()
	out, rows, err := r.shape.materialize(ctx, r.scope.criteria, c.window)
	elapsed := time.Since(start)
	if err != nil {
		capitan.Error(ctx, QueryFailed,
			KeyQuery.Field(c.id.String()),
			KeyEntity.Field(c.entity),
			KeyShape.Field(r.shape.kind().String()),
			KeyDuration.Field(elapsed),
			KeyError.Field(err.Error()),
		)
		return zero, err
	}

	capitan.Info(ctx, QueryExecuted,
		KeyQuery.Field(c.id.String()),
		KeyEntity.Field(c.entity),
		KeyShape.Field(r.shape.kind().String()),
		KeyDuration.Field(elapsed),
		KeyRows.Field(rows),
	)
	return out, nil
}

// Query is the root builder of a query over T returning R.
// R is *T for GetOne, []T for GetAll, and int64 for GetCount.
type Query[R, T any] struct {
	root *rootScope[R, T]
}

// GetOne starts a query for at most one T. Execute returns nil when nothing matches.
func GetOne[T any](ctx context.Context, s Session) *Query[*T, T] {
	return newQuery[T, *T](ctx, s, single[T]{})
}

// GetAll starts a query for every matching T, honoring FirstResult and MaxResults.
func GetAll[T any](ctx context.Context, s Session) *Query[[]T, T] {
	return newQuery[T, []T](ctx, s, list[T]{})
}

// GetCount starts a query for the number of matching T.
func GetCount[T any](ctx context.Context, s Session) *Query[int64, T] {
	return newQuery[T, int64](ctx, s, count[T]{})
}

func newQuery[T, R any](ctx context.Context, s Session, sh shape[T, R]) *Query[R, T] {
	entity := entityName[T]()
	c := &chain{ctx: ctx, id: uuid.New(), entity: entity}
	q := &Query[R, T]{root: &rootScope[R, T]{
		scope: &scope{chain: c, entity: entity},
		shape: sh,
	}}

	if s == nil {
		c.fail(ErrNilSession)
		return q
	}
	crit, err := s.CreateCriteria(ctx, reflect.TypeFor[T]())
	if err != nil {
		c.fail(err)
		return q
	}
	q.root.scope.criteria = crit

	capitan.Debug(ctx, QueryCreated,
		KeyQuery.Field(c.id.String()),
		KeyEntity.Field(entity),
		KeyShape.Field(sh.kind().String()),
	)
	return q
}

// ID returns the identifier carried by every event this query emits.
func (q *Query[R, T]) ID() uuid.UUID { return q.root.scope.chain.id }

// Shape returns the result shape the query was created with.
func (q *Query[R, T]) Shape() Shape { return q.root.shape.kind() }

// Err returns the first error recorded while building, if any.
func (q *Query[R, T]) Err() error { return q.root.scope.chain.err }

// Where adds r to the root scope.
func (q *Query[R, T]) Where(r Restriction[T]) *Conjunction[R, T] {
	q.root.scope.restrict(r.Predicate)
	return &Conjunction[R, T]{root: q.root}
}

// OrderBy starts an ordering clause on m.
func (q *Query[R, T]) OrderBy(m Member[T]) *OrderBy[*Query[R, T], T] {
	return &OrderBy[*Query[R, T], T]{scope: q.root.scope, name: nameOf(m), back: q}
}

// WithFetchModeOn sets the fetch strategy for the association m.
func (q *Query[R, T]) WithFetchModeOn(m Member[T], mode FetchMode) *Query[R, T] {
	q.root.scope.fetch(nameOf(m), mode)
	return q
}

// WithDistinctEntityRoot deduplicates root entities, for list queries joined through
// a collection.
func (q *Query[R, T]) WithDistinctEntityRoot() *Query[R, T] {
	q.root.scope.distinct()
	return q
}

// FirstResult skips the first n rows. It only applies to GetAll queries.
func (q *Query[R, T]) FirstResult(n int) *Query[R, T] {
	if q.root.scope.chain.usable() {
		q.root.scope.chain.window.first = n
	}
	return q
}

// MaxResults limits the query to n rows. It only applies to GetAll queries.
func (q *Query[R, T]) MaxResults(n int) *Query[R, T] {
	if q.root.scope.chain.usable() {
		q.root.scope.chain.window.max = n
	}
	return q
}

// Nav is the navigation point for HasChild and HasChildren. Ending the child scope
// returns a Conjunction over this query's root scope.
func (q *Query[R, T]) Nav() Nav[*Conjunction[R, T], T] {
	return Nav[*Conjunction[R, T], T]{scope: q.root.scope, cont: &Conjunction[R, T]{root: q.root}}
}

// Execute runs the query. It may be called once.
func (q *Query[R, T]) Execute(ctx context.Context) (R, error) {
	return q.root.execute(ctx)
}

// OrderBy is a pending ordering clause on one property. Every terminal call adds
// exactly one order to the scope and returns to B.
type OrderBy[B, T any] struct {
	scope *scope
	name  string
	back  B
}

// Ascending orders smallest first.
func (o *OrderBy[B, T]) Ascending() B {
	o.scope.order(o.name, false)
	return o.back
}

// Descending orders largest first.
func (o *OrderBy[B, T]) Descending() B {
	o.scope.order(o.name, true)
	return o.back
}

// LegacyDescending adds an ascending order, reproducing the behavior of earlier
// releases where descending ordering was never applied. Prefer Descending.
func (o *OrderBy[B, T]) LegacyDescending() B {
	o.scope.order(o.name, false)
	return o.back
}
