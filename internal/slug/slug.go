// Package slug turns titles, tags and file names into URL path segments.
package slug

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make folds s to lower-case words joined by single hyphens.
// Accented letters lose their marks; anything else that is not a letter or
// digit becomes a separator. The result may be empty.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// Path applies Make to every slash-separated segment of p and drops
// segments that end up empty.
func Path(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if s := Make(part); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// Tag is the URL segment and grouping key of a tag. Tags that differ only
// in case, accents or punctuation share a key. A tag with no letters or
// digits is keyed by its hex encoding.
func Tag(tag string) string {
	if s := Make(tag); s != "" {
		return s
	}
	return fmt.Sprintf("tag-%x", tag)
}
