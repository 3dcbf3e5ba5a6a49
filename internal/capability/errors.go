package capability

import "errors"

// Permission gate errors.
var (
	// ErrPermissionDenied is returned when a tool lacks a required capability.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnknownCapability is returned for values outside the closed set.
	ErrUnknownCapability = errors.New("unknown capability")
)
