package tofu

import (
	"fmt"
	"reflect"
	"runtime"
)

// Member is a resolved reference to a field of T, independent of the field's value type.
// Properties, associations, and collections all satisfy it.
type Member[T any] interface {
	// Name returns the Go field name the member resolved to.
	Name() string
	member(*T)
}

// Property is a typed reference to a field of T holding values of type V.
//
// Properties are usually declared once as package-level variables:
//
//	var UserEmail = tofu.Prop(func(u *User) *string { return &u.Email })
type Property[T, V any] struct {
	name string
}

// Name returns the resolved field name.
func (p Property[T, V]) Name() string { return p.name }

func (Property[T, V]) member(*T) {}

// Association is a typed reference to a to-one association from T to C.
type Association[T, C any] struct {
	name string
}

// Name returns the resolved field name.
func (a Association[T, C]) Name() string { return a.name }

func (Association[T, C]) member(*T) {}

// Collection is a typed reference to a to-many association from T to C.
type Collection[T, C any] struct {
	name string
}

// Name returns the resolved field name.
func (c Collection[T, C]) Name() string { return c.name }

func (Collection[T, C]) member(*T) {}

// Prop resolves a member-access selector to a Property.
// It panics if the selector is not a direct field read; use ResolveProp to handle the error.
func Prop[T, V any](sel func(*T) *V) Property[T, V] {
	p, err := ResolveProp(sel)
	if err != nil {
		panic(err)
	}
	return p
}

// ResolveProp resolves a member-access selector to a Property.
// The selector must return the address of exactly one field of T, for example
// func(u *User) *string { return &u.Email }. Anything else fails with ErrInvalidExpression.
func ResolveProp[T, V any](sel func(*T) *V) (Property[T, V], error) {
	name, err := resolveField(sel)
	if err != nil {
		return Property[T, V]{}, err
	}
	return Property[T, V]{name: name}, nil
}

// ToOne resolves a selector on a pointer field to a to-one Association.
// It panics if the selector is not a direct field read.
func ToOne[T, C any](sel func(*T) **C) Association[T, C] {
	name, err := resolveField(sel)
	if err != nil {
		panic(err)
	}
	return Association[T, C]{name: name}
}

// ToMany resolves a selector on a slice field to a to-many Collection.
// It panics if the selector is not a direct field read.
func ToMany[T, C any](sel func(*T) *[]C) Collection[T, C] {
	name, err := resolveField(sel)
	if err != nil {
		panic(err)
	}
	return Collection[T, C]{name: name}
}

// ToManyRefs is ToMany for slices of pointers.
func ToManyRefs[T, C any](sel func(*T) *[]*C) Collection[T, C] {
	name, err := resolveField(sel)
	if err != nil {
		panic(err)
	}
	return Collection[T, C]{name: name}
}

// resolveField runs sel against a zero T and maps the returned address back to a field
// by offset. Promoted fields of embedded structs resolve to their own name.
func resolveField[T, F any](sel func(*T) *F) (name string, err error) {
	owner := reflect.TypeFor[T]()
	if owner.Kind() != reflect.Struct {
		return "", fmt.Errorf("tofu: %s is not a struct: %w", owner, ErrInvalidExpression)
	}
	if sel == nil {
		return "", fmt.Errorf("tofu: nil selector on %s: %w", owner.Name(), ErrInvalidExpression)
	}

	defer func() {
		if r := recover(); r != nil {
			name = ""
			err = fmt.Errorf("tofu: selector on %s panicked (%v): %w", owner.Name(), r, ErrInvalidExpression)
		}
	}()

	zero := new(T)
	ptr := sel(zero)
	if ptr == nil {
		return "", fmt.Errorf("tofu: selector on %s returned nil: %w", owner.Name(), ErrInvalidExpression)
	}

	base := reflect.ValueOf(zero).Pointer()
	addr := reflect.ValueOf(ptr).Pointer()
	runtime.KeepAlive(zero)

	if addr < base || addr >= base+owner.Size() {
		return "", fmt.Errorf("tofu: selector on %s does not address one of its fields: %w", owner.Name(), ErrInvalidExpression)
	}

	field, ok := fieldAt(owner, addr-base, reflect.TypeFor[F]())
	if !ok {
		return "", fmt.Errorf("tofu: selector on %s is not a direct member access: %w", owner.Name(), ErrInvalidExpression)
	}
	return field, nil
}

// fieldAt finds the exported field of t at offset off with type ft, descending into
// embedded structs only.
func fieldAt(t reflect.Type, off uintptr, ft reflect.Type) (string, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Offset == off && f.Type == ft {
			return f.Name, f.IsExported()
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && off >= f.Offset && off < f.Offset+f.Type.Size() {
			if name, ok := fieldAt(f.Type, off-f.Offset, ft); ok {
				return name, true
			}
		}
	}
	return "", false
}
