// Package playground provides isolated, namespaced resolution contexts for
// testing a tool with mocked effects and enforced timeouts.
//
// A playground delegates to the default resolution chain, but intercepts a
// small fixed set of permission-sensitive module specifiers first. Unlike
// the lazy default chain, this interception is eager: it represents an
// explicit trust boundary, so a missing capability fails resolution
// immediately rather than at call time.
package playground

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolsmith/internal/capability"
	"toolsmith/internal/fetch"
	"toolsmith/internal/sandbox"
)

// sensitiveModules maps permission-sensitive specifiers to the capability
// they require.
var sensitiveModules = map[string]capability.Capability{
	"host/fetch": capability.CapabilityNetwork,
	"host/exec":  capability.CapabilityCommand,
	"host/fs":    capability.CapabilityFilesystem,
}

// DefaultTimeout bounds live calls made from a playground.
const DefaultTimeout = 30 * time.Second

// Options configure one playground.
type Options struct {
	// Capabilities is the playground's granted capability set.
	Capabilities []capability.Capability

	// Mock substitutes deterministic fixed-shape responses for live calls
	// to permission-sensitive modules.
	Mock bool

	// Timeout bounds live calls; zero means DefaultTimeout.
	Timeout time.Duration
}

// Manager owns all playgrounds and their namespaced caches.
type Manager struct {
	resolver *sandbox.Resolver
	log      *zap.Logger

	mu          sync.Mutex
	playgrounds map[string]*Playground
}

// Playground is one isolated resolution context.
type Playground struct {
	ID string

	mgr     *Manager
	caps    map[capability.Capability]bool
	mock    bool
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]any
}

// NewManager creates a playground manager over the default resolver.
func NewManager(resolver *sandbox.Resolver, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		resolver:    resolver,
		log:         log,
		playgrounds: make(map[string]*Playground),
	}
}

// Open creates a new playground with its own cache namespace.
func (m *Manager) Open(opts Options) *Playground {
	caps := make(map[capability.Capability]bool, len(opts.Capabilities))
	for _, c := range opts.Capabilities {
		caps[c] = true
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := &Playground{
		ID:      uuid.NewString(),
		mgr:     m,
		caps:    caps,
		mock:    opts.Mock,
		timeout: timeout,
		cache:   make(map[string]any),
	}

	m.mu.Lock()
	m.playgrounds[p.ID] = p
	m.mu.Unlock()

	m.log.Debug("playground opened",
		zap.String("id", p.ID),
		zap.Bool("mock", opts.Mock))
	return p
}

// Get returns a playground by id, or nil.
func (m *Manager) Get(id string) *Playground {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playgrounds[id]
}

// ClearCache clears one playground's cache without affecting others.
func (m *Manager) ClearCache(id string) {
	p := m.Get(id)
	if p == nil {
		return
	}
	p.mu.Lock()
	p.cache = make(map[string]any)
	p.mu.Unlock()
}

// Close removes a playground and its cache.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.playgrounds, id)
}

// Resolve resolves a specifier within the playground's namespace.
func (p *Playground) Resolve(specifier, baseDir string) (any, error) {
	p.mu.Lock()
	if v, ok := p.cache[specifier]; ok {
		p.mu.Unlock()
		return v, nil
	}
	p.mu.Unlock()

	required, sensitive := sensitiveModules[specifier]
	if sensitive {
		// Eager check: denial surfaces at resolve time, not call time.
		if !p.caps[required] {
			return nil, fmt.Errorf("%w: module %q requires the %s capability",
				capability.ErrPermissionDenied, specifier, required)
		}
		v, err := p.resolveSensitive(specifier, baseDir)
		if err != nil {
			return nil, err
		}
		p.store(specifier, v)
		return v, nil
	}

	v, err := p.mgr.resolver.Resolve(specifier, baseDir)
	if err != nil {
		return nil, err
	}
	p.store(specifier, v)
	return v, nil
}

func (p *Playground) resolveSensitive(specifier, baseDir string) (any, error) {
	if p.mock {
		return mockModule(specifier), nil
	}

	live, err := p.mgr.resolver.Resolve(specifier, baseDir)
	if err != nil {
		return nil, err
	}
	call, ok := live.(fetch.Callable)
	if !ok {
		return nil, fmt.Errorf("module %q is not callable", specifier)
	}
	return withTimeout(call, p.timeout), nil
}

func (p *Playground) store(specifier string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[specifier] = v
}

// cached reports whether a specifier is in this playground's cache.
// Used by tests to verify namespace isolation.
func (p *Playground) cached(specifier string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cache[specifier]
	return ok
}

// withTimeout wraps a live call so an abort signal fires after the
// configured duration. An aborted call fails immediately; it is never
// retried.
func withTimeout(call fetch.Callable, timeout time.Duration) fetch.Callable {
	return func(ctx context.Context, arg string) (map[string]any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return call(ctx, arg)
	}
}

// mockModule returns a deterministic fixed-shape substitute for a
// permission-sensitive module.
func mockModule(specifier string) fetch.Callable {
	return func(ctx context.Context, arg string) (map[string]any, error) {
		return map[string]any{
			"mocked":  true,
			"module":  specifier,
			"arg":     arg,
			"status":  200,
			"headers": map[string]string{},
			"body":    "",
		}, nil
	}
}
