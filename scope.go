package tofu

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// chain is the state shared by every builder value of one query.
// The first error encountered while building is kept; later calls become no-ops.
// ctx is the context the query was created with, used for build-time events.
type chain struct {
	ctx      context.Context
	id       uuid.UUID
	entity   string
	err      error
	executed bool
	window   window
}

func (c *chain) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// usable reports whether the chain may still touch its criteria.
func (c *chain) usable() bool {
	if c.err != nil {
		return false
	}
	if c.executed {
		c.err = fmt.Errorf("tofu: %s: %w", c.entity, ErrQueryExecuted)
		return false
	}
	return true
}

// scope binds one criteria to the chain that owns it.
type scope struct {
	chain    *chain
	criteria Criteria
	entity   string
	path     string
}

func (s *scope) restrict(p Predicate) {
	if !s.chain.usable() {
		return
	}
	if p.property == "" {
		s.chain.fail(fmt.Errorf("tofu: where on %s: %w", s.entity, ErrInvalidExpression))
		return
	}
	if err := s.criteria.Add(p); err != nil {
		s.chain.fail(err)
	}
}

func (s *scope) order(name string, descending bool) {
	if !s.chain.usable() {
		return
	}
	if name == "" {
		s.chain.fail(fmt.Errorf("tofu: order on %s: %w", s.entity, ErrInvalidExpression))
		return
	}
	if err := s.criteria.AddOrder(Order{Property: name, Descending: descending}); err != nil {
		s.chain.fail(err)
	}
}

func (s *scope) fetch(name string, mode FetchMode) {
	if !s.chain.usable() {
		return
	}
	if name == "" {
		s.chain.fail(fmt.Errorf("tofu: fetch mode on %s: %w", s.entity, ErrInvalidExpression))
		return
	}
	if err := s.criteria.SetFetchMode(name, mode); err != nil {
		s.chain.fail(err)
	}
}

func (s *scope) distinct() {
	if !s.chain.usable() {
		return
	}
	s.criteria.SetDistinctRoot()
}

// child opens the scope for the named association. On failure the returned scope has
// no criteria, which is safe because the chain already holds an error.
func (s *scope) child(name, entity string) *scope {
	path := name
	if s.path != "" {
		path = s.path + "." + name
	}
	ch := &scope{chain: s.chain, entity: entity, path: path}
	if !s.chain.usable() {
		return ch
	}
	if name == "" {
		s.chain.fail(fmt.Errorf("tofu: child of %s: %w", s.entity, ErrInvalidExpression))
		return ch
	}
	c, err := s.criteria.CreateCriteria(name)
	if err != nil {
		s.chain.fail(err)
		return ch
	}
	ch.criteria = c

	capitan.Debug(s.chain.ctx, ScopeOpened,
		KeyQuery.Field(s.chain.id.String()),
		KeyEntity.Field(entity),
		KeyAssociation.Field(path),
	)
	return ch
}

// nameOf returns the resolved name of m, or "" for a nil or zero member.
func nameOf[T any](m Member[T]) string {
	if m == nil {
		return ""
	}
	return m.Name()
}

func entityName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
