package sandbox

import (
	"context"
	"fmt"
	"go/parser"
	"reflect"
	"sync"

	"github.com/traefik/yaegi/interp"

	"toolsmith/internal/sdk"
)

// exportSymbols are the recognized default-export names, checked in order.
// Tool definition files export Tool; plain helper modules export Exports.
var exportSymbols = []string{"main.Tool", "main.Exports"}

// ModuleInstance is one evaluated module.
type ModuleInstance struct {
	Module *CompiledModule

	// Export is the module's default export, nil when the module exports
	// nothing under a recognized name.
	Export any

	interp *interp.Interpreter
}

// Instantiate evaluates a compiled module in a fresh interpreter.
//
// The interpreter sees the stdlib allow-list, the host SDK, and a Require
// binding bound to this module's own directory and a per-module cache.
// Resolution failures inside Require are not raised here; they surface when
// the failing call executes.
func (r *Resolver) Instantiate(ctx context.Context, cm *CompiledModule, baseDir string) (*ModuleInstance, error) {
	i := interp.New(interp.Options{})

	if err := i.Use(r.compiler.stdlib); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(sdk.Symbols()); err != nil {
		return nil, fmt.Errorf("load sdk symbols: %w", err)
	}
	if err := i.Use(interp.Exports{
		sdk.ImportPath + "/sdk": {
			"Require": reflect.ValueOf(r.requireFor(baseDir)),
		},
	}); err != nil {
		return nil, fmt.Errorf("bind require: %w", err)
	}

	// The module unit is compiled under its own filename rather than the
	// interpreter's default source name: yaegi keys imported package
	// symbols by the basename of each node's position, so the unit name
	// must match the //line-remapped positions of the wrapped source or
	// imports become unresolvable ("constant definition loop").
	if err := safeRun(ctx, i, cm); err != nil {
		return nil, &CompileError{File: cm.Name, Err: err}
	}

	inst := &ModuleInstance{Module: cm, interp: i}
	for _, symbol := range exportSymbols {
		v, err := safeEval(ctx, i, symbol)
		if err == nil && v.IsValid() {
			inst.Export = v.Interface()
			break
		}
	}
	return inst, nil
}

// requireFor builds the per-module Require binding.
func (r *Resolver) requireFor(baseDir string) sdk.RequireFunc {
	var mu sync.Mutex
	cache := make(map[string]any)

	return func(specifier string) (any, error) {
		mu.Lock()
		if v, ok := cache[specifier]; ok {
			mu.Unlock()
			return v, nil
		}
		mu.Unlock()

		v, err := r.Resolve(specifier, baseDir)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		cache[specifier] = v
		mu.Unlock()
		return v, nil
	}
}

// safeEval evaluates source in the interpreter, converting interpreter
// panics into errors so one malformed module cannot take down the host.
func safeEval(ctx context.Context, i *interp.Interpreter, src string) (v reflect.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("interpreter panic: %v", rec)
		}
	}()
	return i.EvalWithContext(ctx, src)
}

// safeRun compiles and executes a module unit under its own filename,
// converting interpreter panics into errors so one malformed module cannot
// take down the host.
func safeRun(ctx context.Context, i *interp.Interpreter, cm *CompiledModule) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("interpreter panic: %v", rec)
		}
	}()
	file, err := parser.ParseFile(i.FileSet(), cm.Path, cm.Code, parser.ParseComments)
	if err != nil {
		return err
	}
	prog, err := i.CompileAST(file)
	if err != nil {
		return err
	}
	_, err = i.ExecuteWithContext(ctx, prog)
	return err
}
