package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"toolsmith/internal/adapter"
)

func hostTool(name string, fn func(ctx context.Context, input map[string]any) (any, error)) *adapter.HostTool {
	return &adapter.HostTool{Name: name, Execute: fn}
}

func okTool(name string) *adapter.HostTool {
	return hostTool(name, func(ctx context.Context, input map[string]any) (any, error) {
		return "ok", nil
	})
}

func TestRegisterAndGet(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(okTool("alpha")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Get("alpha") == nil {
		t.Fatal("registered tool not found")
	}
	if r.Get("missing") != nil {
		t.Fatal("unknown tool should be nil")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d", r.Count())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(okTool("dup")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(okTool("dup")); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterInvalid(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(nil); !errors.Is(err, ErrInvalidTool) {
		t.Fatalf("nil tool: %v", err)
	}
	if err := r.Register(&adapter.HostTool{}); !errors.Is(err, ErrInvalidTool) {
		t.Fatalf("unnamed tool: %v", err)
	}
}

func TestReplaceAll(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(okTool("old")); err != nil {
		t.Fatal(err)
	}

	r.ReplaceAll(map[string]*adapter.HostTool{
		"new-a": okTool("new-a"),
		"new-b": okTool("new-b"),
	})

	if r.Get("old") != nil {
		t.Error("old tool should be gone after ReplaceAll")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "new-a" || names[1] != "new-b" {
		t.Errorf("Names = %v", names)
	}
}

func TestInvokeNotFound(t *testing.T) {
	r := New(zap.NewNop())

	_, err := r.Invoke(context.Background(), "ghost", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestInvokeReturnsResult(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(okTool("echo")); err != nil {
		t.Fatal(err)
	}

	res, err := r.Invoke(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.ToolName != "echo" || res.Result != "ok" {
		t.Errorf("result = %+v", res)
	}
}

func TestSameToolInvocationsSerialized(t *testing.T) {
	r := New(zap.NewNop())

	var inFlight, overlaps int32
	slow := hostTool("slow", func(ctx context.Context, input map[string]any) (any, error) {
		if atomic.AddInt32(&inFlight, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	})
	if err := r.Register(slow); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Invoke(context.Background(), "slow", nil)
		}()
	}
	wg.Wait()

	if overlaps != 0 {
		t.Fatalf("same-name invocations overlapped %d times", overlaps)
	}
}

func TestDifferentToolsRunConcurrently(t *testing.T) {
	r := New(zap.NewNop())

	release := make(chan struct{})
	started := make(chan string, 2)
	blocker := func(name string) *adapter.HostTool {
		return hostTool(name, func(ctx context.Context, input map[string]any) (any, error) {
			started <- name
			<-release
			return nil, nil
		})
	}
	if err := r.Register(blocker("a")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(blocker("b")); err != nil {
		t.Fatal(err)
	}

	go func() { _, _ = r.Invoke(context.Background(), "a", nil) }()
	go func() { _, _ = r.Invoke(context.Background(), "b", nil) }()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("different tools did not run concurrently")
		}
	}
	close(release)
}
