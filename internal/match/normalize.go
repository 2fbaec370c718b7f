package match

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLen is the shortest token that participates in overlap scoring.
const minTokenLen = 3

// Normalize folds a display name for comparison: compatibility
// decomposition, combining marks removed, lower case, and every run of
// non-alphanumerics collapsed to one space.
func Normalize(s string) string {
	// transform.Chain keeps state, so build one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the distinct normalized tokens of s that are at least
// three characters long.
func Tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.Fields(Normalize(s)) {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Slug canonicalizes a category slug so localized or differently punctuated
// forms compare equal.
func Slug(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return slug.Make(s)
}

func contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
