package contracts

import "errors"

// Error taxonomy shared by every loader and ledger operation.
//
// ErrMissingInput marks a required file that is absent: recoverable, the
// caller logs a warning and keeps its prior state. ErrSchemaMismatch
// marks an input whose columns do not match the versioned schema: fatal
// for the invoking run and propagated to the scheduler. Malformed rows
// and join misses are not errors; they are dropped or default-filled.
var (
	ErrMissingInput   = errors.New("required input missing")
	ErrSchemaMismatch = errors.New("input schema mismatch")
)
