package availability

import (
	"strings"
	"unicode"
)

// UnixName converts an API name to the file name of its schema:
// "devtools.inspectedWindow" becomes "devtools_inspected_window".
func UnixName(name string) string {
	runes := []rune(name)

	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && runes[i-1] != '_' {
			switch {
			// lowerUpper becomes lower_upper
			case unicode.IsLower(runes[i-1]):
				sb.WriteRune('_')
			// ACMEWidgets becomes acme_widgets
			case i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				sb.WriteRune('_')
			}
		}

		if r == '.' {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// schemaFileNames returns the file names a schema of name may have, both
// flat and nested by namespace.
func schemaFileNames(name string) []string {
	unix := UnixName(name)
	nested := UnixName(strings.ReplaceAll(name, ".", "/"))

	names := []string{unix + ".json", unix + ".idl"}
	if nested != unix {
		names = append(names, nested+".json", nested+".idl")
	}
	return names
}
