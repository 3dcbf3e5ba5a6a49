package registry

import "errors"

// Registry errors.
var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidTool is returned for a nil or unnamed tool.
	ErrInvalidTool = errors.New("invalid tool")

	// ErrAlreadyRegistered is returned when registering a duplicate name.
	ErrAlreadyRegistered = errors.New("tool already registered")
)
