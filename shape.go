package tofu

import (
	"context"
	"fmt"
)

// Shape is the result shape a query was created with.
type Shape int

// Result shapes.
const (
	ShapeSingle Shape = iota
	ShapeCount
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeCount:
		return "count"
	case ShapeList:
		return "list"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// window is the optional pagination window. Zero means unset.
type window struct {
	first int
	max   int
}

// shape materializes the result of a criteria scope as R. The implementation is
// chosen by the entry point, so R never needs inspecting at run time.
type shape[T, R any] interface {
	kind() Shape
	materialize(ctx context.Context, c Criteria, w window) (R, int, error)
}

// single yields the first row, or nil when there is none.
type single[T any] struct{}

func (single[T]) kind() Shape { return ShapeSingle }

func (single[T]) materialize(ctx context.Context, c Criteria, _ window) (*T, int, error) {
	c.SetMaxResults(1)
	var rows []T
	if err := c.List(ctx, &rows); err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}
	row := rows[0]
	return &row, 1, nil
}

// count yields the row count projection.
type count[T any] struct{}

func (count[T]) kind() Shape { return ShapeCount }

func (count[T]) materialize(ctx context.Context, c Criteria, _ window) (int64, int, error) {
	c.SetProjection(RowCount)
	c.SetMaxResults(1)
	var rows []int64
	if err := c.List(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, ErrMissingCount
	}
	return rows[0], 1, nil
}

// list yields every row in engine order, restricted to the window when one is set.
type list[T any] struct{}

func (list[T]) kind() Shape { return ShapeList }

func (list[T]) materialize(ctx context.Context, c Criteria, w window) ([]T, int, error) {
	if w.max > 0 {
		c.SetMaxResults(w.max)
	}
	if w.first > 0 {
		c.SetFirstResult(w.first)
	}
	rows := []T{}
	if err := c.List(ctx, &rows); err != nil {
		return nil, 0, err
	}
	return rows, len(rows), nil
}
