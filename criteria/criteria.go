package criteria

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/tofu"
)

// Scope is one node of a criteria tree: the root entity or a joined association.
// Restrictions and orders are validated against the mapping when added.
type Scope struct {
	session *Session
	root    *Scope
	parent  *Scope
	entity  *entity
	assoc   *association
	alias   string
	path    string

	restrictions []tofu.Predicate
	orders       []tofu.Order
	fetchModes   map[string]tofu.FetchMode
	children     []*Scope

	// Root only.
	query *queryState
}

// queryState is the part of a criteria tree shared by all of its scopes.
type queryState struct {
	distinct   bool
	first      int
	max        int
	projection tofu.Projection
	orders     []scopedOrder
	aliases    int
}

// scopedOrder keeps ORDER BY terms in call order across scopes.
type scopedOrder struct {
	scope *Scope
	order tofu.Order
}

func newRoot(s *Session, e *entity) *Scope {
	root := &Scope{
		session:    s,
		entity:     e,
		alias:      "t0",
		fetchModes: make(map[string]tofu.FetchMode),
		query:      &queryState{aliases: 1},
	}
	root.root = root
	return root
}

// CreateCriteria joins the named association and returns its scope.
func (c *Scope) CreateCriteria(association string) (tofu.Criteria, error) {
	child, err := c.join(association)
	if err != nil {
		return nil, err
	}
	return child, nil
}

func (c *Scope) join(association string) (*Scope, error) {
	a, ok := c.entity.assocs[association]
	if !ok {
		return nil, fmt.Errorf("criteria: %s has no association %q: %w", c.entity.name, association, ErrUnknownAssociation)
	}
	target, err := c.session.registry.entity(a.target)
	if err != nil {
		return nil, err
	}

	q := c.root.query
	path := association
	if c.path != "" {
		path = c.path + "." + association
	}
	child := &Scope{
		session:    c.session,
		root:       c.root,
		parent:     c,
		entity:     target,
		assoc:      a,
		alias:      "t" + strconv.Itoa(q.aliases),
		path:       path,
		fetchModes: make(map[string]tofu.FetchMode),
	}
	q.aliases++
	c.children = append(c.children, child)
	return child, nil
}

// Add appends a restriction on a mapped field of this scope's entity.
func (c *Scope) Add(p tofu.Predicate) error {
	if _, err := c.column(p.Property()); err != nil {
		return err
	}
	c.restrictions = append(c.restrictions, p)
	return nil
}

// AddOrder appends an ordering on a mapped field of this scope's entity.
func (c *Scope) AddOrder(o tofu.Order) error {
	if _, err := c.column(o.Property); err != nil {
		return err
	}
	c.orders = append(c.orders, o)
	c.root.query.orders = append(c.root.query.orders, scopedOrder{scope: c, order: o})
	return nil
}

// SetFetchMode records the fetch strategy of an association of this scope's entity.
// FetchJoin on the root scope eager-loads the association after List.
func (c *Scope) SetFetchMode(association string, mode tofu.FetchMode) error {
	if _, ok := c.entity.assocs[association]; !ok {
		return fmt.Errorf("criteria: %s has no association %q: %w", c.entity.name, association, ErrUnknownAssociation)
	}
	c.fetchModes[association] = mode
	return nil
}

// SetDistinctRoot deduplicates root rows.
func (c *Scope) SetDistinctRoot() { c.root.query.distinct = true }

// SetFirstResult sets the row offset of the whole query.
func (c *Scope) SetFirstResult(n int) { c.root.query.first = n }

// SetMaxResults sets the row limit of the whole query.
func (c *Scope) SetMaxResults(n int) { c.root.query.max = n }

// SetProjection replaces the selected columns of the whole query.
func (c *Scope) SetProjection(p tofu.Projection) { c.root.query.projection = p }

// List renders the query and scans the result into dest: a *[]E for the root
// entity E, or a *[]int64 under RowCount.
func (c *Scope) List(ctx context.Context, dest any) error {
	root := c.root
	if err := root.checkDest(dest); err != nil {
		return err
	}
	sql, args, err := root.Render()
	if err != nil {
		return err
	}
	if err := root.session.selectContext(ctx, root.entity.table, dest, sql, args...); err != nil {
		return err
	}
	if root.query.projection == tofu.RowCount {
		return nil
	}
	return root.eagerLoad(ctx, reflect.ValueOf(dest).Elem())
}

// Path returns the association path from the root, "" for the root scope.
func (c *Scope) Path() string { return c.path }

// Alias returns the table alias of the scope in rendered SQL.
func (c *Scope) Alias() string { return c.alias }

func (c *Scope) column(field string) (*column, error) {
	col, ok := c.entity.fields[field]
	if !ok {
		return nil, fmt.Errorf("criteria: %s has no mapped field %q: %w", c.entity.name, field, ErrUnknownProperty)
	}
	return col, nil
}

func (c *Scope) checkDest(dest any) error {
	want := reflect.PointerTo(reflect.SliceOf(c.entity.typ))
	if c.query.projection == tofu.RowCount {
		want = reflect.TypeFor[*[]int64]()
	}
	if got := reflect.TypeOf(dest); got != want {
		return fmt.Errorf("criteria: list into %v, want %v", got, want)
	}
	return nil
}

// selectContext runs one statement and reports it through capitan.
func (s *Session) selectContext(ctx context.Context, table string, dest any, query string, args ...any) error {
	capitan.Debug(ctx, StatementStarted,
		KeyTable.Field(table),
		KeySQL.Field(query),
	)

	start := time.Now()
	err := sqlx.SelectContext(ctx, s.db, dest, query, args...)
	elapsed := time.Since(start)
	if err != nil {
		capitan.Error(ctx, StatementFailed,
			KeyTable.Field(table),
			KeySQL.Field(query),
			KeyDuration.Field(elapsed),
			KeyError.Field(err.Error()),
		)
		return err
	}

	capitan.Info(ctx, StatementCompleted,
		KeyTable.Field(table),
		KeyDuration.Field(elapsed),
		KeyRows.Field(reflect.ValueOf(dest).Elem().Len()),
	)
	return nil
}
