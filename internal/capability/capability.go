// Package capability implements the permission gate for custom tools.
//
// Every tool declares the capabilities it needs from a closed three-value
// set. The gate keeps one grant record per tool name; a grant replaces the
// previous record entirely and lives until it is revoked or the process
// exits.
package capability

import (
	"fmt"
	"strings"
)

// Capability is one permission a tool may declare and be granted.
type Capability string

const (
	// CapabilityFilesystem allows reading and writing workspace files.
	CapabilityFilesystem Capability = "filesystem"

	// CapabilityNetwork allows outbound network access.
	CapabilityNetwork Capability = "network"

	// CapabilityCommand allows running external commands.
	CapabilityCommand Capability = "command"
)

// All returns every capability in the closed set.
func All() []Capability {
	return []Capability{CapabilityFilesystem, CapabilityNetwork, CapabilityCommand}
}

// Parse converts a string into a Capability.
// Returns an error for anything outside the closed set.
func Parse(s string) (Capability, error) {
	switch Capability(strings.ToLower(strings.TrimSpace(s))) {
	case CapabilityFilesystem:
		return CapabilityFilesystem, nil
	case CapabilityNetwork:
		return CapabilityNetwork, nil
	case CapabilityCommand:
		return CapabilityCommand, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCapability, s)
}
