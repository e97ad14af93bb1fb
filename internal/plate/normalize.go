// Package plate turns raw OCR output into canonical licence plate strings
// and runs recognition through an ordered chain of OCR engines.
package plate

import (
	"strings"
	"unicode"
)

// Normalize cleans a raw OCR guess into a canonical plate string: strip
// everything that is not a letter or digit, uppercase, then apply the common
// confusion substitutions O->0, I->1, Z->2.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	normalized := b.String()
	normalized = strings.ReplaceAll(normalized, "O", "0")
	normalized = strings.ReplaceAll(normalized, "I", "1")
	normalized = strings.ReplaceAll(normalized, "Z", "2")
	return normalized
}
