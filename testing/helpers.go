// Package testing provides test utilities and helpers for tofu users.
// These utilities help users test their own tofu-based applications without a database.
package testing

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/tofu"
)

// FakeCriteria is an in-memory tofu.Criteria that records every call made against it.
// Thread-safe for concurrent inspection.
type FakeCriteria struct {
	path         string
	restrictions []tofu.Predicate
	orders       []tofu.Order
	fetchModes   map[string]tofu.FetchMode
	distinct     bool
	first        int
	max          int
	projection   tofu.Projection
	children     map[string]*FakeCriteria
	childNames   []string
	mutations    int
	lists        int

	rows     any
	count    *int64
	listErr  error
	addErr   error
	childErr error

	mu sync.Mutex
}

// FakeOption configures a FakeCriteria.
type FakeOption func(*FakeCriteria)

// WithRows sets the rows List yields. rows must be a slice of the root entity.
func WithRows(rows any) FakeOption {
	return func(f *FakeCriteria) { f.rows = rows }
}

// WithCount sets the value List yields under a RowCount projection.
func WithCount(n int64) FakeOption {
	return func(f *FakeCriteria) { f.count = &n }
}

// FailList makes List return err.
func FailList(err error) FakeOption {
	return func(f *FakeCriteria) { f.listErr = err }
}

// FailAdd makes Add and AddOrder return err.
func FailAdd(err error) FakeOption {
	return func(f *FakeCriteria) { f.addErr = err }
}

// FailChild makes CreateCriteria return err.
func FailChild(err error) FakeOption {
	return func(f *FakeCriteria) { f.childErr = err }
}

// NewFakeCriteria creates a new FakeCriteria instance.
func NewFakeCriteria(opts ...FakeOption) *FakeCriteria {
	f := &FakeCriteria{
		fetchModes: make(map[string]tofu.FetchMode),
		children:   make(map[string]*FakeCriteria),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCriteria opens a child fake for the association.
func (f *FakeCriteria) CreateCriteria(association string) (tofu.Criteria, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.childErr != nil {
		return nil, f.childErr
	}
	path := association
	if f.path != "" {
		path = f.path + "." + association
	}
	child := NewFakeCriteria()
	child.path = path
	f.children[association] = child
	f.childNames = append(f.childNames, association)
	f.mutations++
	return child, nil
}

// Add records a restriction.
func (f *FakeCriteria) Add(p tofu.Predicate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.restrictions = append(f.restrictions, p)
	f.mutations++
	return nil
}

// AddOrder records an ordering clause.
func (f *FakeCriteria) AddOrder(o tofu.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.orders = append(f.orders, o)
	f.mutations++
	return nil
}

// SetFetchMode records a fetch mode.
func (f *FakeCriteria) SetFetchMode(association string, mode tofu.FetchMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchModes[association] = mode
	f.mutations++
	return nil
}

// SetDistinctRoot records root deduplication.
func (f *FakeCriteria) SetDistinctRoot() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distinct = true
	f.mutations++
}

// SetFirstResult records the first result offset.
func (f *FakeCriteria) SetFirstResult(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.first = n
	f.mutations++
}

// SetMaxResults records the result limit.
func (f *FakeCriteria) SetMaxResults(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.max = n
	f.mutations++
}

// SetProjection records the projection.
func (f *FakeCriteria) SetProjection(p tofu.Projection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projection = p
	f.mutations++
}

// List fills dest. Under RowCount it yields the WithCount value, else the number of
// WithRows rows, else nothing. Otherwise it yields the WithRows rows cut to the
// recorded first/max window.
func (f *FakeCriteria) List(_ context.Context, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return f.listErr
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("fake criteria: dest must be a pointer to a slice, got %T", dest)
	}
	out := dv.Elem()

	if f.projection == tofu.RowCount {
		counts, ok := dest.(*[]int64)
		if !ok {
			return fmt.Errorf("fake criteria: count dest must be *[]int64, got %T", dest)
		}
		switch {
		case f.count != nil:
			*counts = []int64{*f.count}
		case f.rows != nil:
			*counts = []int64{int64(reflect.ValueOf(f.rows).Len())}
		default:
			*counts = []int64{}
		}
		return nil
	}

	if f.rows == nil {
		out.Set(reflect.MakeSlice(out.Type(), 0, 0))
		return nil
	}
	rv := reflect.ValueOf(f.rows)
	if rv.Type() != out.Type() {
		return fmt.Errorf("fake criteria: rows are %s, dest wants %s", rv.Type(), out.Type())
	}
	lo, hi := 0, rv.Len()
	if f.first > 0 {
		lo = min(f.first, hi)
	}
	if f.max > 0 {
		hi = min(lo+f.max, hi)
	}
	window := rv.Slice(lo, hi)
	out.Set(reflect.AppendSlice(reflect.MakeSlice(out.Type(), 0, window.Len()), window))
	return nil
}

// Path returns the association path of this scope, "" for the root.
func (f *FakeCriteria) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

// Restrictions returns a copy of the recorded restrictions.
func (f *FakeCriteria) Restrictions() []tofu.Predicate {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]tofu.Predicate, len(f.restrictions))
	copy(result, f.restrictions)
	return result
}

// Orders returns a copy of the recorded ordering clauses.
func (f *FakeCriteria) Orders() []tofu.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]tofu.Order, len(f.orders))
	copy(result, f.orders)
	return result
}

// FetchMode returns the fetch mode recorded for association.
func (f *FakeCriteria) FetchMode(association string) (tofu.FetchMode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mode, ok := f.fetchModes[association]
	return mode, ok
}

// Distinct reports whether SetDistinctRoot was called.
func (f *FakeCriteria) Distinct() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.distinct
}

// FirstResult returns the recorded offset.
func (f *FakeCriteria) FirstResult() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.first
}

// MaxResults returns the recorded limit.
func (f *FakeCriteria) MaxResults() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.max
}

// Projection returns the recorded projection.
func (f *FakeCriteria) Projection() tofu.Projection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projection
}

// Child returns the child opened for association, or nil.
func (f *FakeCriteria) Child(association string) *FakeCriteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.children[association]
}

// Children returns the associations opened on this scope, in call order.
func (f *FakeCriteria) Children() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.childNames))
	copy(result, f.childNames)
	return result
}

// Mutations returns the number of successful mutating calls on this scope,
// excluding List and calls on child scopes.
func (f *FakeCriteria) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

// ListCalls returns the number of List calls.
func (f *FakeCriteria) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// SessionFor returns a session that hands out c for every entity.
func SessionFor(c tofu.Criteria) tofu.Session {
	return tofu.SessionFunc(func(_ context.Context, _ reflect.Type) (tofu.Criteria, error) {
		return c, nil
	})
}

// MockSession is a mock implementation of tofu.Session.
//
// Example usage:
//
//	session := new(tofutest.MockSession)
//	tofutest.ExpectCriteria[User](session, tofutest.NewFakeCriteria())
type MockSession struct {
	mock.Mock
}

// CreateCriteria returns the configured criteria.
func (m *MockSession) CreateCriteria(ctx context.Context, entity reflect.Type) (tofu.Criteria, error) {
	args := m.Called(ctx, entity)
	c, _ := args.Get(0).(tofu.Criteria)
	return c, args.Error(1)
}

// ExpectCriteria sets up m to return c for entity T.
func ExpectCriteria[T any](m *MockSession, c tofu.Criteria) *mock.Call {
	return m.On("CreateCriteria", mock.Anything, reflect.TypeFor[T]()).Return(c, nil)
}

// MockCriteria is a mock implementation of tofu.Criteria, for asserting exact call
// sequences.
type MockCriteria struct {
	mock.Mock
}

// CreateCriteria opens a child scope.
func (m *MockCriteria) CreateCriteria(association string) (tofu.Criteria, error) {
	args := m.Called(association)
	c, _ := args.Get(0).(tofu.Criteria)
	return c, args.Error(1)
}

// Add appends a restriction.
func (m *MockCriteria) Add(p tofu.Predicate) error {
	return m.Called(p).Error(0)
}

// AddOrder appends an ordering clause.
func (m *MockCriteria) AddOrder(o tofu.Order) error {
	return m.Called(o).Error(0)
}

// SetFetchMode sets a fetch mode.
func (m *MockCriteria) SetFetchMode(association string, mode tofu.FetchMode) error {
	return m.Called(association, mode).Error(0)
}

// SetDistinctRoot enables root deduplication.
func (m *MockCriteria) SetDistinctRoot() {
	m.Called()
}

// SetFirstResult sets the offset.
func (m *MockCriteria) SetFirstResult(n int) {
	m.Called(n)
}

// SetMaxResults sets the limit.
func (m *MockCriteria) SetMaxResults(n int) {
	m.Called(n)
}

// SetProjection sets the projection.
func (m *MockCriteria) SetProjection(p tofu.Projection) {
	m.Called(p)
}

// List runs the query.
func (m *MockCriteria) List(ctx context.Context, dest any) error {
	return m.Called(ctx, dest).Error(0)
}

// QueryEvent represents a captured tofu event.
type QueryEvent struct {
	Signal      capitan.Signal
	Query       string
	Entity      string
	Shape       string
	Association string
	Error       string
	Rows        int
	Duration    time.Duration
	Timestamp   time.Time
}

// EventCapture captures tofu query events.
// Thread-safe for concurrent capture.
type EventCapture struct {
	events []QueryEvent
	mu     sync.Mutex
}

// NewEventCapture creates a new EventCapture instance.
func NewEventCapture() *EventCapture {
	return &EventCapture{
		events: make([]QueryEvent, 0),
	}
}

// Handler returns an EventCallback that captures tofu events.
func (ec *EventCapture) Handler() capitan.EventCallback {
	return func(_ context.Context, e *capitan.Event) {
		query, _ := tofu.KeyQuery.From(e)
		entity, _ := tofu.KeyEntity.From(e)
		shape, _ := tofu.KeyShape.From(e)
		association, _ := tofu.KeyAssociation.From(e)
		errMsg, _ := tofu.KeyError.From(e)
		rows, _ := tofu.KeyRows.From(e)
		duration, _ := tofu.KeyDuration.From(e)

		ec.mu.Lock()
		defer ec.mu.Unlock()
		ec.events = append(ec.events, QueryEvent{
			Signal:      e.Signal(),
			Query:       query,
			Entity:      entity,
			Shape:       shape,
			Association: association,
			Error:       errMsg,
			Rows:        rows,
			Duration:    duration,
			Timestamp:   time.Now(),
		})
	}
}

// Events returns a copy of all captured events.
func (ec *EventCapture) Events() []QueryEvent {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	result := make([]QueryEvent, len(ec.events))
	copy(result, ec.events)
	return result
}

// BySignal returns all captured events for a signal.
func (ec *EventCapture) BySignal(signal capitan.Signal) []QueryEvent {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	result := make([]QueryEvent, 0)
	for _, e := range ec.events {
		if e.Signal == signal {
			result = append(result, e)
		}
	}
	return result
}

// ByQuery returns all captured events for one query id.
func (ec *EventCapture) ByQuery(id string) []QueryEvent {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	result := make([]QueryEvent, 0)
	for _, e := range ec.events {
		if e.Query == id {
			result = append(result, e)
		}
	}
	return result
}

// Count returns the number of captured events.
func (ec *EventCapture) Count() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.events)
}

// Reset clears all captured events.
func (ec *EventCapture) Reset() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.events = ec.events[:0]
}

// WaitForCount blocks until the capture has at least n events or timeout occurs.
func (ec *EventCapture) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ec.Count() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
