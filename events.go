package tofu

import "github.com/zoobzio/capitan"

// Event keys for structured logging.
var (
	KeyQuery       = capitan.NewStringKey("query")
	KeyEntity      = capitan.NewStringKey("entity")
	KeyShape       = capitan.NewStringKey("shape")
	KeyAssociation = capitan.NewStringKey("association")
	KeyError       = capitan.NewStringKey("error")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyRows        = capitan.NewIntKey("rows")
)

// Signals emitted by tofu.
var (
	QueryCreated  = capitan.NewSignal("tofu.query.created", "Query bound to a root criteria scope")
	ScopeOpened   = capitan.NewSignal("tofu.scope.opened", "Child criteria scope opened for an association")
	QueryExecuted = capitan.NewSignal("tofu.query.executed", "Query executed")
	QueryFailed   = capitan.NewSignal("tofu.query.failed", "Query failed")
)
