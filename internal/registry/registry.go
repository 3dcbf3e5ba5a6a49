// Package registry holds the host's registry-ready tools and dispatches
// invocations against them.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"toolsmith/internal/adapter"
)

// Registry holds adapted tools keyed by name. It is safe for concurrent
// use and enforces the no-concurrent-self-invocation contract: invocations
// of the same non-concurrent tool are serialized, different names run
// freely in parallel.
type Registry struct {
	log *zap.Logger

	mu    sync.RWMutex
	tools map[string]*adapter.HostTool

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// InvokeResult wraps one invocation with metadata.
type InvokeResult struct {
	ToolName   string
	Result     any
	Err        error
	DurationMs int64
}

// New creates an empty registry.
func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:   log,
		tools: make(map[string]*adapter.HostTool),
		locks: make(map[string]*sync.Mutex),
	}
}

// Register adds a tool. Returns an error for duplicates; use ReplaceAll
// for a full rescan.
func (r *Registry) Register(tool *adapter.HostTool) error {
	if tool == nil || tool.Name == "" {
		return ErrInvalidTool
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.log.Debug("registered tool", zap.String("name", tool.Name))
	return nil
}

// ReplaceAll swaps the registry contents wholesale. Load passes rebuild
// the tool set rather than diffing incrementally.
func (r *Registry) ReplaceAll(tools map[string]*adapter.HostTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]*adapter.HostTool, len(tools))
	for name, tool := range tools {
		r.tools[name] = tool
	}
	r.log.Info("registry replaced", zap.Int("tools", len(tools)))
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *adapter.HostTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Invoke runs a tool by name. Non-concurrent tools are serialized per
// name for the duration of the call.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) (*InvokeResult, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if !tool.Concurrent {
		lock := r.lockFor(name)
		lock.Lock()
		defer lock.Unlock()
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	duration := time.Since(start)

	r.log.Debug("tool invoked",
		zap.String("name", name),
		zap.Duration("duration", duration),
		zap.Bool("success", err == nil))

	return &InvokeResult{
		ToolName:   name,
		Result:     result,
		Err:        err,
		DurationMs: duration.Milliseconds(),
	}, err
}

func (r *Registry) lockFor(name string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}
	return lock
}
