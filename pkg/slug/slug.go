// Package slug normalizes human-readable labels into stable lookup keys.
// Slugs are the only bridge between display names (module, submodule, field
// labels) and permission-set keys or URL path segments.
package slug

import (
	"strings"
	"unicode"
)

// Make converts a display label to its canonical slug: lower-cased, with any
// run of whitespace, punctuation or other non-alphanumeric characters
// collapsed to a single hyphen. Make is idempotent, so an already-slugged
// value passes through unchanged.
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Unmake is the approximate inverse of Make for display purposes: hyphens
// become spaces and each word is title-cased. It is not bijective and must
// never be used for lookups.
func Unmake(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
