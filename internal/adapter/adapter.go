// Package adapter wraps validated custom tool definitions into the host's
// generic tool-invocation shape.
package adapter

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"toolsmith/internal/capability"
	"toolsmith/internal/sdk"
)

// HostTool is the registry-ready shape every tool conforms to.
type HostTool struct {
	Name        string
	Description string

	// Concurrent is always false for custom tools: the host registry must
	// serialize invocations of the same tool name. Different names may run
	// concurrently.
	Concurrent bool

	Hidden     bool
	IsBeta     bool
	BadgeLabel string

	// Execute runs the tool. Errors from the definition's own execute
	// function propagate unchanged to the host's invocation-error handling.
	Execute func(ctx context.Context, input map[string]any) (any, error)

	// RenderDoing renders the in-progress view.
	RenderDoing func(input map[string]any) string

	// RenderResult renders the finished view.
	RenderResult func(result any, err error) string
}

var (
	doingStyle   = lipgloss.NewStyle().Faint(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Adapt produces the host-registry shape for one definition.
//
// The execute wrapper grants the definition's declared permission list
// before every invocation; the gate's explicit Check and Revoke remain
// available to hosts that want user approval in front of the grant.
func Adapt(def *sdk.Tool, gate *capability.Gate) *HostTool {
	if gate == nil {
		gate = capability.Default()
	}

	return &HostTool{
		Name:        def.Name,
		Description: def.LocalizedDescription(),
		Concurrent:  false,
		Hidden:      def.Hidden,
		IsBeta:      def.IsBeta,
		BadgeLabel:  def.BadgeLabel,

		Execute: func(ctx context.Context, input map[string]any) (any, error) {
			if len(def.Permissions) > 0 {
				gate.Grant(def.Name, def.Permissions)
			}
			return def.Execute(ctx, input)
		},

		RenderDoing: func(input map[string]any) string {
			if def.UI != nil && def.UI.Doing != nil {
				return def.UI.Doing(input)
			}
			return doingStyle.Render(fmt.Sprintf("Running %s…", def.Name))
		},

		RenderResult: func(result any, err error) string {
			if err == nil && def.UI != nil && def.UI.Result != nil {
				return def.UI.Result(result)
			}
			return fallbackResult(def.Name, result, err)
		},
	}
}

// AdaptAll adapts a name-keyed definition map wholesale.
func AdaptAll(defs map[string]*sdk.Tool, gate *capability.Gate) map[string]*HostTool {
	out := make(map[string]*HostTool, len(defs))
	for name, def := range defs {
		out[name] = Adapt(def, gate)
	}
	return out
}

// fallbackResult is the generic presentation used when a definition has no
// result hook: a failure view for error-shaped results, else the raw string
// or a generic confirmation.
func fallbackResult(name string, result any, err error) string {
	if err != nil {
		return failureStyle.Render(fmt.Sprintf("%s failed: %v", name, err))
	}
	if m, ok := result.(map[string]any); ok {
		if reason, failed := failureShape(m); failed {
			return failureStyle.Render(fmt.Sprintf("%s failed: %s", name, reason))
		}
	}
	if s, ok := result.(string); ok {
		return successStyle.Render(s)
	}
	return successStyle.Render(fmt.Sprintf("%s executed", name))
}

// failureShape reports whether a result map carries the generic failure
// shape: success === false, or an error field.
func failureShape(m map[string]any) (string, bool) {
	if v, ok := m["success"]; ok {
		if b, isBool := v.(bool); isBool && !b {
			if e, hasErr := m["error"]; hasErr {
				return fmt.Sprint(e), true
			}
			return "unsuccessful result", true
		}
	}
	if e, ok := m["error"]; ok && e != nil {
		return fmt.Sprint(e), true
	}
	return "", false
}
