// Package string holds small string helpers shared across request handling.
package string

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a Go field name to snake_case for error messages,
// keeping acronym runs intact (ExternalID becomes external_id).
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
