package tofu

import (
	"context"
	"reflect"
)

// Session opens root criteria scopes. It is the factory the GetOne, GetAll, and
// GetCount entry points draw from.
type Session interface {
	CreateCriteria(ctx context.Context, entity reflect.Type) (Criteria, error)
}

// SessionFunc adapts a function to Session.
type SessionFunc func(ctx context.Context, entity reflect.Type) (Criteria, error)

// CreateCriteria calls f.
func (f SessionFunc) CreateCriteria(ctx context.Context, entity reflect.Type) (Criteria, error) {
	return f(ctx, entity)
}

// Criteria is one filter scope of a query: the root entity or a nested association.
// Implementations are mutated in place by every builder call and are not safe for
// concurrent use.
type Criteria interface {
	// CreateCriteria opens a child scope for the named association.
	CreateCriteria(association string) (Criteria, error)

	// Add appends one restriction predicate to this scope.
	Add(p Predicate) error

	// AddOrder appends one ordering clause to this scope.
	AddOrder(o Order) error

	// SetFetchMode sets the fetch strategy for the named association.
	SetFetchMode(association string, mode FetchMode) error

	// SetDistinctRoot deduplicates root entities in list results.
	SetDistinctRoot()

	SetFirstResult(n int)
	SetMaxResults(n int)

	// SetProjection replaces the selected columns.
	SetProjection(p Projection)

	// List runs the query. dest is a *[]T for the root entity, or *[]int64 under RowCount.
	List(ctx context.Context, dest any) error
}

// FetchMode is a fetch strategy hint for an association.
type FetchMode int

// Fetch modes.
const (
	FetchDefault FetchMode = iota
	FetchSelect
	FetchJoin
)

func (m FetchMode) String() string {
	switch m {
	case FetchSelect:
		return "select"
	case FetchJoin:
		return "join"
	default:
		return "default"
	}
}

// Projection selects what a query returns instead of entity rows.
type Projection int

// Projections.
const (
	NoProjection Projection = iota
	RowCount
)

func (p Projection) String() string {
	if p == RowCount {
		return "rowcount"
	}
	return "none"
}

// Order is one ordering clause.
type Order struct {
	Property   string
	Descending bool
}

// Asc orders by property, smallest first.
func Asc(property string) Order { return Order{Property: property} }

// Desc orders by property, largest first.
func Desc(property string) Order { return Order{Property: property, Descending: true} }

func (o Order) String() string {
	if o.Descending {
		return o.Property + " DESC"
	}
	return o.Property + " ASC"
}
