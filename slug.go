package epub

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// untitled replaces blank titles before slugging so a slug is never empty.
const untitled = "no title"

// nonSlugRun matches every run of characters that may not appear in a slug.
// Underscores are folded into the same run so the result is idempotent.
var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// isString reports whether v's concrete type is string.
func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// isBlank reports whether v is the empty string.
func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && len(s) == 0
}

// removeDiacritics strips combining marks after canonical decomposition,
// e.g. "Café" becomes "Cafe".
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// slugify lower-cases raw and collapses every run of non-alphanumeric
// characters (underscores included) into a single hyphen. The result only
// contains [a-z0-9-] and is never empty.
func slugify(raw string) string {
	if strings.TrimSpace(raw) == "" {
		raw = untitled
	}
	return nonSlugRun.ReplaceAllString(strings.ToLower(raw), "-")
}

// titleSlug is the slug used for derived chapter file names.
func titleSlug(title string) string {
	if strings.TrimSpace(title) == "" {
		title = untitled
	}
	return slugify(removeDiacritics(title))
}
