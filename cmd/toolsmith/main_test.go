package main

import (
	"testing"

	"toolsmith/internal/capability"
)

func TestGrantsRoundTrip(t *testing.T) {
	ws := t.TempDir()

	gf, err := loadGrants(ws)
	if err != nil {
		t.Fatalf("loadGrants on empty workspace: %v", err)
	}
	if len(gf.Grants) != 0 {
		t.Fatalf("expected empty grant store, got %v", gf.Grants)
	}

	gf.Grants["weather"] = []string{"network"}
	gf.Grants["backup"] = []string{"filesystem", "command"}
	if err := saveGrants(ws, gf); err != nil {
		t.Fatalf("saveGrants: %v", err)
	}

	loaded, err := loadGrants(ws)
	if err != nil {
		t.Fatalf("loadGrants: %v", err)
	}
	if len(loaded.Grants["backup"]) != 2 {
		t.Errorf("backup grants = %v", loaded.Grants["backup"])
	}
}

func TestApplyGrantsSeedsGate(t *testing.T) {
	ws := t.TempDir()

	gf := &grantsFile{Grants: map[string][]string{
		"weather": {"network"},
	}}
	if err := saveGrants(ws, gf); err != nil {
		t.Fatalf("saveGrants: %v", err)
	}

	gate := capability.NewGate()
	if err := applyGrants(ws, gate); err != nil {
		t.Fatalf("applyGrants: %v", err)
	}

	res := gate.Check("weather", []capability.Capability{capability.CapabilityNetwork})
	if !res.Allowed {
		t.Fatalf("persisted grant not applied to gate: missing %v", res.Missing)
	}
	if res := gate.Check("weather", []capability.Capability{capability.CapabilityCommand}); res.Allowed {
		t.Error("gate must not allow capabilities outside the persisted set")
	}
}

func TestApplyGrantsRejectsUnknownCapability(t *testing.T) {
	ws := t.TempDir()

	gf := &grantsFile{Grants: map[string][]string{
		"weather": {"root"},
	}}
	if err := saveGrants(ws, gf); err != nil {
		t.Fatalf("saveGrants: %v", err)
	}

	if err := applyGrants(ws, capability.NewGate()); err == nil {
		t.Fatal("expected an error for a capability outside the closed set")
	}
}

func TestApplyGrantsMissingFileIsNoop(t *testing.T) {
	gate := capability.NewGate()
	if err := applyGrants(t.TempDir(), gate); err != nil {
		t.Fatalf("applyGrants: %v", err)
	}
	if len(gate.Grants()) != 0 {
		t.Errorf("gate should stay empty, got %v", gate.Grants())
	}
}
