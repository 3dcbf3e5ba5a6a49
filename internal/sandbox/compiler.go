// Package sandbox compiles custom tool source at runtime and resolves its
// imports against a deliberately constrained module graph.
//
// Tool files are Go source interpreted in an isolated yaegi interpreter per
// module. Only an allow-listed stdlib subset and the host SDK are importable
// directly; everything else goes through the sandboxed Require binding,
// whose failures surface lazily when the call executes.
package sandbox

import (
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"toolsmith/internal/sdk"
)

// allowedStdlib is the closed set of stdlib packages tool modules may
// import directly. Filesystem, network, process and unsafe packages are
// deliberately absent; those effects are only reachable through
// capability-gated Require modules.
var allowedStdlib = map[string]bool{
	"bytes":           true,
	"context":         true,
	"encoding/base64": true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"math/rand":       true,
	"path":            true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
	"unicode/utf8":    true,
}

// CompiledModule is one file's source prepared for instantiation.
// It lives only for the duration of one load and is discarded after import.
type CompiledModule struct {
	// ID is an opaque identifier for this compilation.
	ID string

	// Name is the original filename, base only.
	Name string

	// Path is the absolute source path for file-backed modules.
	Path string

	// Code is the wrapped source handed to the interpreter.
	Code string

	// Imports lists the file's import paths.
	Imports []string

	// Fset retains source positions for error reporting.
	Fset *token.FileSet
}

// Compiler turns tool source text into executable module code.
// One instance is shared process-wide; see Shared.
type Compiler struct {
	stdlib interp.Exports
}

var (
	sharedOnce     sync.Once
	sharedCompiler *Compiler
)

// Shared returns the process-wide compiler, creating it on first use.
// Concurrent first callers converge on a single initialization.
func Shared() *Compiler {
	sharedOnce.Do(func() {
		sharedCompiler = NewCompiler()
	})
	return sharedCompiler
}

// NewCompiler builds a compiler with the stdlib allow-list applied.
func NewCompiler() *Compiler {
	syms := make(interp.Exports, len(allowedStdlib))
	for key, symbols := range stdlib.Symbols {
		// Symbol keys are "<import path>/<package name>".
		idx := strings.LastIndex(key, "/")
		if idx < 0 {
			continue
		}
		if allowedStdlib[key[:idx]] {
			syms[key] = symbols
		}
	}
	return &Compiler{stdlib: syms}
}

// Compile parses one file's source, validates its import graph, and wraps
// it for instantiation. Transform errors propagate to the caller; they are
// converted into file-level diagnostics there and never abort sibling files.
func (c *Compiler) Compile(source, filename string) (*CompiledModule, error) {
	code := source

	// Bare snippets without a package clause are wrapped in package main,
	// the package the default export is fetched from. The line directive
	// keeps reported positions aligned with the author's source despite
	// the injected clause.
	probe := token.NewFileSet()
	if _, err := parser.ParseFile(probe, filename, code, parser.PackageClauseOnly); err != nil {
		code = "package main\n//line " + filename + ":1\n" + source
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, code, parser.ParseComments)
	if err != nil {
		return nil, &CompileError{File: filename, Err: err}
	}

	imports := make([]string, 0, len(file.Imports))
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		imports = append(imports, path)
		if !allowedStdlib[path] && path != sdk.ImportPath {
			return nil, &CompileError{
				File: filename,
				Err:  fmt.Errorf("%w: %q", ErrForbiddenImport, path),
			}
		}
	}

	// Trailing debug comment records the original filename.
	code += "\n// module: " + filename + "\n"

	return &CompiledModule{
		ID:      uuid.NewString(),
		Name:    filepath.Base(filename),
		Path:    filename,
		Code:    code,
		Imports: imports,
		Fset:    fset,
	}, nil
}
