// Package normalize provides text canonicalization for dictionary matching.
// All free-text fields pass through Text before they are compared against
// stored names, so semantically identical spellings (half-width vs full-width,
// mixed case, stray whitespace) end up byte-identical.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text returns the canonical form of s.
//
// The transformation is NFKC compatibility folding followed by whitespace
// trimming, internal whitespace collapsing and lowercasing. NFKC folds
// full-width ASCII to half-width and half-width katakana to full-width, so
// "ｸﾚｵﾗ" and "クレオラ" normalize identically. The function is total and
// idempotent; empty or garbage input yields an empty or garbage canonical
// string, never an error.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = collapseSpace(s)
	return strings.ToLower(s)
}

// Display returns the display form of s: NFKC folded and whitespace
// collapsed but with case preserved. Stored titles and names keep this form
// while matching happens on Text.
func Display(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpace(norm.NFKC.String(s))
}

// collapseSpace trims leading and trailing whitespace and replaces every
// internal run of Unicode whitespace with a single ASCII space. NFKC has
// already folded ideographic space (U+3000) by the time this runs, but
// unicode.IsSpace covers it regardless of ordering.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte(' ')
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
