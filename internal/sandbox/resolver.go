package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Resolver answers "what value does specifier X refer to, given base
// directory Y". The resolution chain, in order: cache, relative file
// imports, host-registered modules, the fixed builtin allow-list, and the
// closed internal virtual-module table. Anything else is ErrModuleNotFound.
type Resolver struct {
	compiler *Compiler
	log      *zap.Logger

	mu         sync.Mutex
	cache      map[string]any
	registered map[string]any
	internals  map[string]string
	builtins   map[string]*builtinModule
}

// builtinModule is a lazily constructed allow-listed module.
type builtinModule struct {
	once  sync.Once
	load  func() any
	value any
}

// NewResolver creates a resolver backed by the given compiler.
func NewResolver(compiler *Compiler, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		compiler:   compiler,
		log:        log,
		cache:      make(map[string]any),
		registered: make(map[string]any),
		internals:  make(map[string]string),
		builtins:   defaultBuiltins(),
	}
}

// RegisterModule injects a host-provided module under a bare specifier.
func (r *Resolver) RegisterModule(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[name] = value
}

// RegisterInternalSource adds an entry to the internal virtual-module
// table: a bare specifier mapped to Go source text compiled on demand.
func (r *Resolver) RegisterInternalSource(name, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.internals[name] = source
}

// Resolve resolves a specifier against the module graph. Relative
// specifiers require a base directory and are cached under their resolved
// absolute path, never their literal text, so identical relative text from
// different directories cannot collide.
func (r *Resolver) Resolve(specifier, baseDir string) (any, error) {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return r.resolveRelative(specifier, baseDir)
	}

	r.mu.Lock()
	if v, ok := r.cache[specifier]; ok {
		r.mu.Unlock()
		return v, nil
	}
	if v, ok := r.registered[specifier]; ok {
		r.cache[specifier] = v
		r.mu.Unlock()
		return v, nil
	}
	b := r.builtins[specifier]
	src, isInternal := r.lookupInternal(specifier)
	r.mu.Unlock()

	if b != nil {
		b.once.Do(func() { b.value = b.load() })
		r.store(specifier, b.value)
		return b.value, nil
	}

	if isInternal {
		v, err := r.instantiateInternal(specifier, src)
		if err != nil {
			return nil, err
		}
		r.store(specifier, v)
		return v, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, specifier)
}

// resolveRelative compiles and instantiates a sibling tool file.
func (r *Resolver) resolveRelative(specifier, baseDir string) (any, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseDirRequired, specifier)
	}

	abs, err := filepath.Abs(filepath.Join(baseDir, specifier))
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", specifier, err)
	}
	path, err := probeFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (from %s)", ErrModuleNotFound, specifier, baseDir)
	}

	key := "file:" + path
	r.mu.Lock()
	if v, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cm, err := r.compiler.Compile(string(src), path)
	if err != nil {
		return nil, err
	}
	inst, err := r.Instantiate(context.Background(), cm, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	r.log.Debug("resolved relative module",
		zap.String("specifier", specifier),
		zap.String("path", path))

	// Concurrent compilations of the same file produce equivalent
	// artifacts, so last-writer-wins is safe here.
	r.store(key, inst.Export)
	return inst.Export, nil
}

// lookupInternal probes the virtual-module table with the fixed candidate
// suffix order. Caller must hold r.mu.
func (r *Resolver) lookupInternal(specifier string) (string, bool) {
	for _, candidate := range []string{
		specifier,
		specifier + ".go",
		specifier + "/index",
		specifier + "/index.go",
	} {
		if src, ok := r.internals[candidate]; ok {
			return src, true
		}
	}
	return "", false
}

func (r *Resolver) instantiateInternal(specifier, source string) (any, error) {
	cm, err := r.compiler.Compile(source, "internal://"+specifier)
	if err != nil {
		return nil, err
	}
	inst, err := r.Instantiate(context.Background(), cm, "")
	if err != nil {
		return nil, err
	}
	return inst.Export, nil
}

func (r *Resolver) store(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = value
}

// probeFile tries the candidate suffix variants for a relative import,
// in fixed order.
func probeFile(abs string) (string, error) {
	for _, candidate := range []string{abs, abs + ".go", filepath.Join(abs, "index.go")} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
