// Package sdk defines the export contract between the host and custom tool
// modules.
//
// A tool file is a Go source file interpreted at load time. Its default
// export is a package-level variable named Tool (or Exports for plain
// helper modules) holding an sdk.Tool value. The package's symbol table is
// exposed to every tool interpreter under the import path "toolsmith/sdk".
package sdk

import (
	"context"
	"strings"

	"toolsmith/internal/capability"
)

// Description holds the localized tool description.
// Both locale strings are required by the export contract.
type Description struct {
	EN string
	ZH string
}

// Property describes a single argument for the tool schema.
type Property struct {
	Type        string
	Description string
	Default     any
	Enum        []any
}

// Schema defines the expected arguments of a tool.
type Schema struct {
	// Required lists arguments that must be provided.
	Required []string

	// Properties describes each argument.
	Properties map[string]Property
}

// Validate checks the input map against the schema's required list.
// It returns the missing argument names, in schema order.
func (s Schema) Validate(input map[string]any) []string {
	var missing []string
	for _, name := range s.Required {
		if _, ok := input[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// ExecuteFunc is the signature of a tool's execute function.
type ExecuteFunc func(ctx context.Context, input map[string]any) (any, error)

// UIHooks are optional render callbacks a tool may provide. When absent the
// adapter falls back to a generic presentation.
type UIHooks struct {
	// Doing renders the in-progress view for an invocation.
	Doing func(input map[string]any) string

	// Result renders the finished view for an invocation result.
	Result func(result any) string
}

// Tool is a custom tool definition, the default export of a tool module.
type Tool struct {
	// Name uniquely identifies the tool within one load pass.
	// Defaults to the filename stem when empty.
	Name string

	// Description is the localized description shown to users.
	Description Description

	// Args declares the argument schema.
	Args Schema

	// Execute runs the tool.
	Execute ExecuteFunc

	// Permissions lists the capabilities the tool declares.
	Permissions []capability.Capability

	// UI holds optional render hooks.
	UI *UIHooks

	// Hidden tools are loaded but not listed.
	Hidden bool

	// IsBeta marks the tool as experimental.
	IsBeta bool

	// BadgeLabel is an optional label shown next to the tool name.
	BadgeLabel string
}

// Validate checks that the definition is usable.
func (t *Tool) Validate() error {
	if t.Execute == nil {
		return ErrExecuteNil
	}
	return nil
}

// LocalizedDescription returns the first available locale string, falling
// back to the tool name.
func (t *Tool) LocalizedDescription() string {
	if s := strings.TrimSpace(t.Description.EN); s != "" {
		return s
	}
	if s := strings.TrimSpace(t.Description.ZH); s != "" {
		return s
	}
	return t.Name
}
