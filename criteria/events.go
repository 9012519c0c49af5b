package criteria

import "github.com/zoobzio/capitan"

// Event keys for structured logging.
var (
	KeyTable    = capitan.NewStringKey("table")
	KeyDialect  = capitan.NewStringKey("dialect")
	KeySQL      = capitan.NewStringKey("sql")
	KeyError    = capitan.NewStringKey("error")
	KeyDuration = capitan.NewDurationKey("duration")
	KeyRows     = capitan.NewIntKey("rows")
)

// Signals emitted by the criteria engine.
var (
	SessionCreated     = capitan.NewSignal("tofu.criteria.session.created", "Criteria session created")
	StatementStarted   = capitan.NewSignal("tofu.criteria.statement.started", "Statement sent to the database")
	StatementCompleted = capitan.NewSignal("tofu.criteria.statement.completed", "Statement completed")
	StatementFailed    = capitan.NewSignal("tofu.criteria.statement.failed", "Statement failed")
)
