package tofu

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// Operator identifies a restriction predicate.
type Operator string

// Restriction operators.
const (
	OpEq        Operator = "="
	OpNotEq     Operator = "NOT ="
	OpLt        Operator = "<"
	OpLe        Operator = "<="
	OpGt        Operator = ">"
	OpGe        Operator = ">="
	OpIn        Operator = "IN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
	OpLike      Operator = "LIKE"
	OpILike     Operator = "ILIKE"
)

// HasOperand reports whether the operator takes a value.
func (o Operator) HasOperand() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// Predicate is the entity-erased form of a restriction as handed to a Criteria.
// It is consumed by Criteria.Add and never retained by the builders.
type Predicate struct {
	op       Operator
	property string
	value    any
}

// NewPredicate builds a predicate directly. Most callers use the Property methods instead.
func NewPredicate(op Operator, property string, value any) Predicate {
	return Predicate{op: op, property: property, value: value}
}

// Op returns the predicate operator.
func (p Predicate) Op() Operator { return p.op }

// Property returns the field name the predicate applies to.
func (p Predicate) Property() string { return p.property }

// Value returns the operand. For OpIn it is a slice; for OpIsNull and OpIsNotNull it is nil.
func (p Predicate) Value() any { return p.value }

// Values returns the OpIn operand as a []any. It returns nil for every other operator.
func (p Predicate) Values() []any {
	if p.op != OpIn || p.value == nil {
		return nil
	}
	rv := reflect.ValueOf(p.value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{p.value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// String renders the predicate for logs and introspection.
func (p Predicate) String() string {
	switch {
	case !p.op.HasOperand():
		return fmt.Sprintf("%s %s", p.property, p.op)
	case p.op == OpNotEq:
		return fmt.Sprintf("NOT (%s = %v)", p.property, p.value)
	default:
		return fmt.Sprintf("%s %s %v", p.property, p.op, p.value)
	}
}

// Restriction is a predicate on a field of T.
type Restriction[T any] struct {
	Predicate
}

func (p Property[T, V]) restrict(op Operator, value any) Restriction[T] {
	return Restriction[T]{Predicate{op: op, property: p.name, value: value}}
}

// Eq restricts the property to equal v.
func (p Property[T, V]) Eq(v V) Restriction[T] { return p.restrict(OpEq, v) }

// NotEq restricts the property to not equal v. It is the negation of Eq.
func (p Property[T, V]) NotEq(v V) Restriction[T] { return p.restrict(OpNotEq, v) }

// Lt restricts the property to be less than v.
func (p Property[T, V]) Lt(v V) Restriction[T] { return p.restrict(OpLt, v) }

// Le restricts the property to be less than or equal to v.
func (p Property[T, V]) Le(v V) Restriction[T] { return p.restrict(OpLe, v) }

// Gt restricts the property to be greater than v.
func (p Property[T, V]) Gt(v V) Restriction[T] { return p.restrict(OpGt, v) }

// Ge restricts the property to be greater than or equal to v.
func (p Property[T, V]) Ge(v V) Restriction[T] { return p.restrict(OpGe, v) }

// In restricts the property to one of values. The slice is passed through as is.
func (p Property[T, V]) In(values ...V) Restriction[T] {
	if values == nil {
		values = []V{}
	}
	return p.restrict(OpIn, values)
}

// InSeq restricts the property to the values yielded by seq.
// The sequence is consumed exactly once, before the restriction reaches the criteria.
func (p Property[T, V]) InSeq(seq iter.Seq[V]) Restriction[T] {
	values := []V{}
	if seq != nil {
		values = slices.AppendSeq(values, seq)
	}
	return p.restrict(OpIn, values)
}

// IsNull restricts the property to be null.
func (p Property[T, V]) IsNull() Restriction[T] { return p.restrict(OpIsNull, nil) }

// IsNotNull restricts the property to be non-null.
func (p Property[T, V]) IsNotNull() Restriction[T] { return p.restrict(OpIsNotNull, nil) }

// Like restricts the property to match a case-sensitive pattern.
func (p Property[T, V]) Like(pattern string) Restriction[T] { return p.restrict(OpLike, pattern) }

// ILike restricts the property to match a case-insensitive pattern.
func (p Property[T, V]) ILike(pattern string) Restriction[T] { return p.restrict(OpILike, pattern) }
