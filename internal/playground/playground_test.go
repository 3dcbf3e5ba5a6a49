package playground

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"toolsmith/internal/capability"
	"toolsmith/internal/fetch"
	"toolsmith/internal/sandbox"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	resolver := sandbox.NewResolver(sandbox.Shared(), zap.NewNop())
	return NewManager(resolver, zap.NewNop())
}

func TestSensitiveModuleDeniedWithoutCapability(t *testing.T) {
	m := newTestManager(t)
	p := m.Open(Options{Mock: true})

	_, err := p.Resolve("host/fetch", "")
	if !errors.Is(err, capability.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if p.cached("host/fetch") {
		t.Fatal("denied module must not be cached")
	}
}

func TestMockModuleShape(t *testing.T) {
	m := newTestManager(t)
	p := m.Open(Options{
		Capabilities: []capability.Capability{capability.CapabilityNetwork},
		Mock:         true,
	})

	v, err := p.Resolve("host/fetch", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	call, ok := v.(fetch.Callable)
	if !ok {
		t.Fatalf("expected callable, got %T", v)
	}

	res, err := call(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("mock call: %v", err)
	}
	if res["mocked"] != true {
		t.Errorf("mocked = %v, want true", res["mocked"])
	}
	if res["status"] != 200 {
		t.Errorf("status = %v, want 200", res["status"])
	}
	if res["arg"] != "https://example.com" {
		t.Errorf("arg = %v", res["arg"])
	}
}

func TestClearCacheIsNamespaced(t *testing.T) {
	m := newTestManager(t)
	opts := Options{
		Capabilities: []capability.Capability{capability.CapabilityNetwork},
		Mock:         true,
	}
	a := m.Open(opts)
	b := m.Open(opts)

	if _, err := a.Resolve("host/fetch", ""); err != nil {
		t.Fatalf("resolve a: %v", err)
	}
	if _, err := b.Resolve("host/fetch", ""); err != nil {
		t.Fatalf("resolve b: %v", err)
	}
	if !a.cached("host/fetch") || !b.cached("host/fetch") {
		t.Fatal("both playgrounds should hold cache entries")
	}

	m.ClearCache(a.ID)

	if a.cached("host/fetch") {
		t.Error("playground a cache should be cleared")
	}
	if !b.cached("host/fetch") {
		t.Error("playground b cache must survive a's clear")
	}
}

func TestTimeoutAbortsLiveCall(t *testing.T) {
	slow := fetch.Callable(func(ctx context.Context, arg string) (map[string]any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return map[string]any{"status": 200}, nil
		}
	})

	wrapped := withTimeout(slow, 20*time.Millisecond)
	start := time.Now()
	_, err := wrapped(context.Background(), "https://example.com")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout did not abort promptly")
	}
}

func TestCloseRemovesPlayground(t *testing.T) {
	m := newTestManager(t)
	p := m.Open(Options{})

	if m.Get(p.ID) == nil {
		t.Fatal("expected playground to be retrievable")
	}
	m.Close(p.ID)
	if m.Get(p.ID) != nil {
		t.Fatal("expected playground to be removed")
	}
}
