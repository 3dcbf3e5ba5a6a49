// Package loader orchestrates discovery, compilation, and instantiation of
// custom tool definitions.
//
// File-level isolation is a hard guarantee: any failure while loading one
// file (read, compile, import, validation, even an interpreter panic) is
// recorded as that file's diagnostic and never prevents other files from
// loading.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"toolsmith/internal/discovery"
	"toolsmith/internal/sandbox"
	"toolsmith/internal/sdk"
)

// Status of one candidate file after a load pass.
type Status string

const (
	StatusLoaded Status = "loaded"
	StatusError  Status = "error"
)

// Result is the per-file outcome. One Result is produced per candidate
// file (and per missing directory) and never dropped.
type Result struct {
	Name       string
	Path       string
	Source     discovery.Source
	Status     Status
	Error      string
	Definition *sdk.Tool
}

// Loader runs full load passes over the discovered tool directories.
type Loader struct {
	scanner  *discovery.Scanner
	resolver *sandbox.Resolver
	log      *zap.Logger

	// parallelism bounds concurrent per-file loads. Results are
	// independent, so ordering of work does not change outcomes.
	parallelism int
}

// New creates a loader.
func New(scanner *discovery.Scanner, resolver *sandbox.Resolver, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		scanner:     scanner,
		resolver:    resolver,
		log:         log,
		parallelism: 4,
	}
}

// Load performs one full pass: scan, then compile and instantiate every
// candidate file. It returns the name-keyed map of loaded definitions and
// the flat diagnostics list. The map is rebuilt wholesale on every pass;
// when two files export the same name the later one overwrites the earlier.
func (l *Loader) Load(ctx context.Context, customDir, workspace string) (map[string]*sdk.Tool, []Result) {
	files, missing := l.scanner.Scan(customDir, workspace)

	results := make([]Result, 0, len(files)+len(missing))
	for _, m := range missing {
		// No file to attribute the error to; the directory path stands in.
		results = append(results, Result{
			Name:   filepath.Base(m.Path),
			Path:   m.Path,
			Source: m.Source,
			Status: StatusError,
			Error:  fmt.Sprintf("tools directory unavailable: %v", m.Err),
		})
	}

	fileResults := make([]Result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for idx, f := range files {
		idx, f := idx, f
		g.Go(func() error {
			fileResults[idx] = l.loadFile(ctx, f)
			return nil
		})
	}
	_ = g.Wait() // per-file failures are recorded, never returned

	definitions := make(map[string]*sdk.Tool)
	for _, res := range fileResults {
		results = append(results, res)
		if res.Status != StatusLoaded {
			l.log.Warn("tool failed to load",
				zap.String("file", res.Path),
				zap.String("error", res.Error))
			continue
		}
		if _, exists := definitions[res.Definition.Name]; exists {
			l.log.Warn("duplicate tool name, later definition wins",
				zap.String("name", res.Definition.Name),
				zap.String("file", res.Path))
		}
		definitions[res.Definition.Name] = res.Definition
	}

	l.log.Info("load pass complete",
		zap.Int("loaded", len(definitions)),
		zap.Int("diagnostics", len(results)-len(definitions)))

	return definitions, results
}

// loadFile loads a single candidate file. All failures, including
// interpreter panics, become this file's diagnostic.
func (l *Loader) loadFile(ctx context.Context, f discovery.SourceFile) (res Result) {
	res = Result{Name: f.Name, Path: f.Path, Source: f.Source}

	fail := func(err error) Result {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	defer func() {
		if rec := recover(); rec != nil {
			res.Status = StatusError
			res.Error = fmt.Sprintf("panic while loading: %v", rec)
		}
	}()

	source, err := os.ReadFile(f.Path)
	if err != nil {
		return fail(fmt.Errorf("read: %w", err))
	}

	cm, err := sandbox.Shared().Compile(string(source), f.Path)
	if err != nil {
		return fail(err)
	}

	// Base directory is the file's own containing directory so relative
	// imports between sibling tool files resolve correctly.
	inst, err := l.resolver.Instantiate(ctx, cm, filepath.Dir(f.Path))
	if err != nil {
		return fail(err)
	}

	def, err := exportedTool(inst.Export)
	if err != nil {
		return fail(err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	}

	res.Status = StatusLoaded
	res.Definition = def
	return res
}

// exportedTool validates the module's default export.
func exportedTool(export any) (*sdk.Tool, error) {
	var def *sdk.Tool
	switch v := export.(type) {
	case sdk.Tool:
		def = &v
	case *sdk.Tool:
		def = v
	}
	if def == nil {
		return nil, ErrInvalidExport
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	return def, nil
}
