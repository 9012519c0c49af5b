// Package criteria is a SQL implementation of tofu's Criteria contract.
//
// A Session maps entity structs to tables from their struct tags and hands out
// criteria scopes that render to SQL with squirrel and run through sqlx.
//
// # Mapping
//
//	type Order struct {
//	    ID         int64     `db:"id" constraints:"primarykey"`
//	    CustomerID int64     `db:"customer_id"`
//	    Status     string    `db:"status"`
//	    Customer   *Customer `db:"-" ref:"customer_id"`
//	    Lines      []Line    `db:"-" ref:"order_id"`
//	}
//
// Columns come from the db tag, or the lowercased field name when it is absent.
// The primary key is the field tagged constraints:"primarykey", or the field named
// ID. The table is the snake_case type name unless the type implements Tabler.
// A ref tag marks an association: on a pointer field it names the owner's foreign
// key column; on a slice field it names the foreign key column on the target.
//
// # Usage
//
//	db, err := criteria.Open(ctx, cfg)
//	session, err := criteria.NewSession(db)
//	orders, err := tofu.GetAll[Order](ctx, session).Where(OrderStatus.Eq("open")).Execute(ctx)
package criteria

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/tofu"
)

// Dialect selects the SQL flavor a session renders.
type Dialect int

// Supported dialects.
const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

func (d Dialect) placeholder() squirrel.PlaceholderFormat {
	if d == Postgres {
		return squirrel.Dollar
	}
	return squirrel.Question
}

// DialectFor returns the dialect of a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("criteria: driver %q: %w", driver, ErrUnsupportedDriver)
	}
}

// Session implements tofu.Session over a SQL database.
// It is safe for concurrent use; the scopes it creates are not.
type Session struct {
	db       sqlx.ExtContext
	dialect  Dialect
	registry *registry
}

// Option configures a Session.
type Option func(*Session)

// WithDialect overrides the dialect detected from the driver name.
func WithDialect(d Dialect) Option {
	return func(s *Session) { s.dialect = d }
}

// NewSession creates a Session on db. The db parameter accepts sqlx.ExtContext,
// which is satisfied by both *sqlx.DB and *sqlx.Tx, so a session can be bound to a
// transaction.
func NewSession(db sqlx.ExtContext, opts ...Option) (*Session, error) {
	s := &Session{db: db, registry: newRegistry(), dialect: -1}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialect < 0 {
		d, err := DialectFor(db.DriverName())
		if err != nil {
			return nil, err
		}
		s.dialect = d
	}

	capitan.Emit(context.Background(), SessionCreated,
		KeyDialect.Field(s.dialect.String()))

	return s, nil
}

// Dialect returns the session dialect.
func (s *Session) Dialect() Dialect { return s.dialect }

// CreateCriteria opens a root scope for entity.
func (s *Session) CreateCriteria(_ context.Context, entity reflect.Type) (tofu.Criteria, error) {
	e, err := s.registry.entity(entity)
	if err != nil {
		return nil, err
	}
	return newRoot(s, e), nil
}

// Register parses and caches the mapping of each model up front, so mapping errors
// surface before the first query.
func (s *Session) Register(models ...any) error {
	for _, m := range models {
		if _, err := s.registry.entity(reflect.TypeOf(m)); err != nil {
			return err
		}
	}
	return nil
}

// For opens a root scope for T with its concrete type, for callers that want
// Render or Spec.
func For[T any](s *Session) (*Scope, error) {
	e, err := s.registry.entity(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return newRoot(s, e), nil
}
