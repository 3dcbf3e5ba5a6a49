package sandbox

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// defaultBuiltins returns the fixed builtin allow-list. Each module is a
// map of plain functions, constructed once on first resolution.
func defaultBuiltins() map[string]*builtinModule {
	return map[string]*builtinModule{
		"render": {load: renderModule},
		"charts": {load: chartsModule},
		"schema": {load: schemaModule},
	}
}

// renderModule provides styled-text helpers for tool output.
func renderModule() any {
	bold := lipgloss.NewStyle().Bold(true)
	success := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failure := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faint := lipgloss.NewStyle().Faint(true)

	return map[string]any{
		"bold":    func(s string) string { return bold.Render(s) },
		"success": func(s string) string { return success.Render(s) },
		"failure": func(s string) string { return failure.Render(s) },
		"faint":   func(s string) string { return faint.Render(s) },
	}
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// chartsModule provides small text charts.
func chartsModule() any {
	return map[string]any{
		"sparkline": func(values []float64) string {
			if len(values) == 0 {
				return ""
			}
			min, max := values[0], values[0]
			for _, v := range values {
				min = math.Min(min, v)
				max = math.Max(max, v)
			}
			span := max - min
			var sb strings.Builder
			for _, v := range values {
				idx := 0
				if span > 0 {
					idx = int((v - min) / span * float64(len(sparkRunes)-1))
				}
				sb.WriteRune(sparkRunes[idx])
			}
			return sb.String()
		},
		"bar": func(label string, value float64, width int) string {
			if width <= 0 {
				width = 20
			}
			filled := int(math.Round(math.Max(0, math.Min(1, value)) * float64(width)))
			return fmt.Sprintf("%s [%s%s]", label,
				strings.Repeat("█", filled),
				strings.Repeat("░", width-filled))
		},
	}
}

// schemaModule provides argument validation helpers mirroring the host's
// own required-argument check.
func schemaModule() any {
	return map[string]any{
		"missing": func(input map[string]any, required []string) []string {
			var missing []string
			for _, name := range required {
				if _, ok := input[name]; !ok {
					missing = append(missing, name)
				}
			}
			return missing
		},
		"validate": func(input map[string]any, required []string) error {
			for _, name := range required {
				if _, ok := input[name]; !ok {
					return fmt.Errorf("missing required argument: %s", name)
				}
			}
			return nil
		},
	}
}
