package sandbox

import (
	"errors"
	"fmt"
)

// Module graph errors.
var (
	// ErrModuleNotFound is returned when no resolution rule matches a
	// specifier. It surfaces lazily: only when the failing Require call is
	// actually executed, never at load time.
	ErrModuleNotFound = errors.New("module not found")

	// ErrBaseDirRequired is returned when a relative specifier is resolved
	// without a base directory.
	ErrBaseDirRequired = errors.New("relative import requires a base directory")

	// ErrForbiddenImport is returned when a tool file imports a package
	// outside the stdlib allow-list.
	ErrForbiddenImport = errors.New("forbidden import")
)

// CompileError wraps a transform failure with the originating file.
type CompileError struct {
	File string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.File, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
