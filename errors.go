package tofu

import "errors"

var (
	// ErrInvalidExpression is returned when a selector is not a direct member access,
	// or when a zero Property or Association is used.
	ErrInvalidExpression = errors.New("invalid property expression")

	// ErrQueryExecuted is returned when a chain is used after Execute.
	ErrQueryExecuted = errors.New("query already executed")

	// ErrMissingCount is returned when the engine yields no row for a count projection.
	ErrMissingCount = errors.New("count projection returned no rows")

	// ErrNilSession is returned when a query is created without a session.
	ErrNilSession = errors.New("nil session")
)
