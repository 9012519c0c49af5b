package tofu

import (
	"maps"
	"reflect"
	"slices"
	"testing"
)

func TestRestrictionOperators(t *testing.T) {
	email := Prop(func(a *account) *string { return &a.Email })
	id := Prop(func(a *account) *int64 { return &a.ID })

	tests := []struct {
		name  string
		r     Restriction[account]
		op    Operator
		prop  string
		value any
	}{
		{"eq", email.Eq("a@b.c"), OpEq, "Email", "a@b.c"},
		{"not eq", email.NotEq("a@b.c"), OpNotEq, "Email", "a@b.c"},
		{"lt", id.Lt(5), OpLt, "ID", int64(5)},
		{"le", id.Le(5), OpLe, "ID", int64(5)},
		{"gt", id.Gt(5), OpGt, "ID", int64(5)},
		{"ge", id.Ge(5), OpGe, "ID", int64(5)},
		{"is null", email.IsNull(), OpIsNull, "Email", nil},
		{"is not null", email.IsNotNull(), OpIsNotNull, "Email", nil},
		{"like", email.Like("%@b.c"), OpLike, "Email", "%@b.c"},
		{"ilike", email.ILike("%@B.C"), OpILike, "Email", "%@B.C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.r.Op() != tt.op {
				t.Errorf("expected op %q, got %q", tt.op, tt.r.Op())
			}
			if tt.r.Property() != tt.prop {
				t.Errorf("expected property %q, got %q", tt.prop, tt.r.Property())
			}
			if tt.r.Value() != tt.value {
				t.Errorf("expected value %v, got %v", tt.value, tt.r.Value())
			}
		})
	}
}

func TestRestrictionIn(t *testing.T) {
	id := Prop(func(a *account) *int64 { return &a.ID })

	t.Run("slice passes through", func(t *testing.T) {
		values := []int64{3, 1, 2}
		r := id.In(values...)
		got, ok := r.Value().([]int64)
		if !ok {
			t.Fatalf("expected []int64, got %T", r.Value())
		}
		if &got[0] != &values[0] {
			t.Error("expected the slice to be passed through without copying")
		}
		if !reflect.DeepEqual(r.Values(), []any{int64(3), int64(1), int64(2)}) {
			t.Errorf("unexpected values %v", r.Values())
		}
	})

	t.Run("empty", func(t *testing.T) {
		r := id.In()
		if r.Value() == nil {
			t.Error("expected an empty set, not nil")
		}
		if len(r.Values()) != 0 {
			t.Errorf("expected no values, got %v", r.Values())
		}
	})

	t.Run("sequence consumed once", func(t *testing.T) {
		calls := 0
		seq := func(yield func(int64) bool) {
			calls++
			for _, v := range []int64{7, 8} {
				if !yield(v) {
					return
				}
			}
		}
		r := id.InSeq(seq)
		_ = r.Values()
		_ = r.Values()
		if calls != 1 {
			t.Errorf("expected sequence to be iterated once, got %d", calls)
		}
		if !reflect.DeepEqual(r.Value(), []int64{7, 8}) {
			t.Errorf("expected [7 8], got %v", r.Value())
		}
	})

	t.Run("map keys", func(t *testing.T) {
		set := map[int64]struct{}{4: {}, 5: {}}
		r := id.InSeq(maps.Keys(set))
		got := r.Value().([]int64)
		slices.Sort(got)
		if !reflect.DeepEqual(got, []int64{4, 5}) {
			t.Errorf("expected [4 5], got %v", got)
		}
	})

	t.Run("nil sequence", func(t *testing.T) {
		r := id.InSeq(nil)
		if len(r.Values()) != 0 {
			t.Errorf("expected no values, got %v", r.Values())
		}
	})
}

func TestPredicateValuesNonIn(t *testing.T) {
	p := NewPredicate(OpEq, "ID", 1)
	if p.Values() != nil {
		t.Errorf("expected nil values for eq, got %v", p.Values())
	}
}

func TestPredicateString(t *testing.T) {
	tests := []struct {
		p    Predicate
		want string
	}{
		{NewPredicate(OpEq, "Email", "x"), "Email = x"},
		{NewPredicate(OpNotEq, "Email", "x"), "NOT (Email = x)"},
		{NewPredicate(OpIsNull, "Age", nil), "Age IS NULL"},
		{NewPredicate(OpIn, "ID", []int{1, 2}), "ID IN [1 2]"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestOperatorHasOperand(t *testing.T) {
	for _, op := range []Operator{OpEq, OpNotEq, OpLt, OpLe, OpGt, OpGe, OpIn, OpLike, OpILike} {
		if !op.HasOperand() {
			t.Errorf("%s should take an operand", op)
		}
	}
	for _, op := range []Operator{OpIsNull, OpIsNotNull} {
		if op.HasOperand() {
			t.Errorf("%s should not take an operand", op)
		}
	}
}
