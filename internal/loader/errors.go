package loader

import "errors"

// Load errors.
var (
	// ErrInvalidExport is returned when a tool file's default export is
	// missing or is not a tool definition.
	ErrInvalidExport = errors.New("default export is not a tool definition")
)
