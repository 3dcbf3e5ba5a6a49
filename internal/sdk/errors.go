package sdk

import "errors"

// Export contract errors.
var (
	// ErrExecuteNil is returned when a tool has no execute function.
	ErrExecuteNil = errors.New("tool execute function cannot be nil")
)
