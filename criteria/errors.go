package criteria

import "errors"

var (
	// ErrUnknownAssociation is returned when a scope names an association its entity does not map.
	ErrUnknownAssociation = errors.New("unknown association")

	// ErrUnknownProperty is returned when a restriction or order names an unmapped field.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrMissingPrimaryKey is returned when an entity has no primary key column.
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrInvalidAssociation is returned when a ref-tagged field has an unsupported shape.
	ErrInvalidAssociation = errors.New("invalid association")

	// ErrUnmappedEntity is returned when an entity type is not a struct.
	ErrUnmappedEntity = errors.New("unmapped entity")

	// ErrUnsupportedDriver is returned for database drivers without a known dialect.
	ErrUnsupportedDriver = errors.New("unsupported driver")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)
