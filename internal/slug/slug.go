// Package slug turns page titles into URL path segments.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 100

// Make converts title to lower-kebab ASCII. Accents are stripped first, so
// "Über uns" becomes "uber-uns"; any other run of non-[a-z0-9] characters
// becomes one dash. An empty result is "page".
func Make(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))

	lastWasDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		case r == 'ß':
			b.WriteString("ss")
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "page"
	}
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// Path returns "/" + Make(title).
func Path(title string) string {
	return "/" + Make(title)
}
