package sdk

import (
	"reflect"

	"toolsmith/internal/capability"
)

// ImportPath is the specifier tool modules use to import the SDK.
const ImportPath = "toolsmith/sdk"

// RequireFunc is the sandboxed module-resolution binding injected into each
// tool interpreter. It is bound to the importing module's own directory so
// relative specifiers resolve correctly.
type RequireFunc = func(specifier string) (any, error)

// Symbols returns the SDK symbol table in the interpreter's exports format.
// Types are exported as nil pointer values, per the yaegi convention.
func Symbols() map[string]map[string]reflect.Value {
	return map[string]map[string]reflect.Value{
		ImportPath + "/sdk": {
			"Tool":        reflect.ValueOf((*Tool)(nil)),
			"Description": reflect.ValueOf((*Description)(nil)),
			"Schema":      reflect.ValueOf((*Schema)(nil)),
			"Property":    reflect.ValueOf((*Property)(nil)),
			"UIHooks":     reflect.ValueOf((*UIHooks)(nil)),
			"ExecuteFunc": reflect.ValueOf((*ExecuteFunc)(nil)),

			"Capability":           reflect.ValueOf((*capability.Capability)(nil)),
			"CapabilityFilesystem": reflect.ValueOf(capability.CapabilityFilesystem),
			"CapabilityNetwork":    reflect.ValueOf(capability.CapabilityNetwork),
			"CapabilityCommand":    reflect.ValueOf(capability.CapabilityCommand),
		},
	}
}
