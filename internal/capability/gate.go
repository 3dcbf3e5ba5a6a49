package capability

import (
	"sort"
	"sync"
	"time"
)

// Grant records the capabilities granted to one tool.
type Grant struct {
	Tool        string
	Permissions []Capability
	GrantedAt   time.Time
}

// has reports whether the grant includes the capability.
func (g Grant) has(c Capability) bool {
	for _, p := range g.Permissions {
		if p == c {
			return true
		}
	}
	return false
}

// CheckResult is the outcome of a permission check.
type CheckResult struct {
	// Allowed is true when every requested capability is granted.
	Allowed bool

	// Missing lists the requested capabilities that are not granted.
	Missing []Capability
}

// Gate is a grant store mapping tool name to capability set.
// It is safe for concurrent use.
type Gate struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

// NewGate creates an empty permission gate.
func NewGate() *Gate {
	return &Gate{grants: make(map[string]Grant)}
}

// Check computes the set difference between the requested capabilities and
// the tool's current grant. A tool with no grant record is allowed nothing.
func (g *Gate) Check(tool string, requested []Capability) CheckResult {
	g.mu.RLock()
	grant, ok := g.grants[tool]
	g.mu.RUnlock()

	var missing []Capability
	for _, c := range requested {
		if !ok || !grant.has(c) {
			missing = append(missing, c)
		}
	}
	return CheckResult{Allowed: len(missing) == 0, Missing: missing}
}

// Grant replaces the tool's entire grant record with the given permission
// list and a fresh timestamp. It is not a union: re-granting a narrower set
// revokes permissions not present in the new call.
func (g *Gate) Grant(tool string, permissions []Capability) {
	perms := make([]Capability, len(permissions))
	copy(perms, permissions)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants[tool] = Grant{
		Tool:        tool,
		Permissions: perms,
		GrantedAt:   time.Now(),
	}
}

// Revoke deletes the tool's grant record entirely.
func (g *Gate) Revoke(tool string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grants, tool)
}

// GrantFor returns the tool's grant record, if any.
func (g *Gate) GrantFor(tool string) (Grant, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	grant, ok := g.grants[tool]
	return grant, ok
}

// Grants returns all grant records, sorted by tool name.
func (g *Gate) Grants() []Grant {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Grant, 0, len(g.grants))
	for _, grant := range g.grants {
		out = append(out, grant)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}

// Default gate instance for hosts that do not inject their own.
var defaultGate = NewGate()

// Default returns the process-wide permission gate.
func Default() *Gate {
	return defaultGate
}
