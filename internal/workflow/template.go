package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// templateRe matches {{name}} placeholders inside string values.
var templateRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// resolveTemplate substitutes {{name}} placeholders in value against the
// given variables, recursing through maps and slices. A string that is
// exactly one placeholder resolves to the variable's typed value; strings
// mixing placeholders with other text interpolate string representations.
// Unknown variables are left in place.
func resolveTemplate(value any, variables map[string]any) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, variables)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, val := range v {
			resolved[key] = resolveTemplate(val, variables)
		}
		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, val := range v {
			resolved[i] = resolveTemplate(val, variables)
		}
		return resolved
	default:
		return value
	}
}

func resolveString(s string, variables map[string]any) any {
	match := templateRe.FindStringSubmatch(s)
	if match == nil {
		return s
	}

	// A whole-string placeholder keeps the variable's type.
	if match[0] == strings.TrimSpace(s) {
		if resolved, ok := lookupPath(variables, match[1]); ok {
			return resolved
		}
		return s
	}

	return templateRe.ReplaceAllStringFunc(s, func(placeholder string) string {
		name := templateRe.FindStringSubmatch(placeholder)[1]
		if resolved, ok := lookupPath(variables, name); ok {
			return fmt.Sprintf("%v", resolved)
		}
		return placeholder
	})
}

// lookupPath resolves a dotted path like "recon.output.endpoint" against a
// nested map structure. Returns the value and whether every segment resolved.
func lookupPath(root map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")

	var current any = root
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
