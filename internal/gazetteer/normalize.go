package gazetteer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripCombiningMarks removes Unicode combining marks from an
// NFD-decomposed string, which is how accented Latin characters fold to
// their base letter (e.g. "é" -> "e").
var stripCombiningMarks = runes.Remove(runes.In(unicode.Mn))

// NormalizeName implements spec §3's gazetteer normalization rule: NFD
// decompose, strip combining marks, lowercase, collapse non-alphanumeric
// runs to a single hyphen, trim leading/trailing hyphens. The result is
// the key used by both name_map and slug_map.
func NormalizeName(s string) string {
	decomposed := norm.NFD.String(s)
	stripped, _, err := transform.String(stripCombiningMarks, decomposed)
	if err != nil {
		stripped = decomposed
	}

	lowered := strings.ToLower(stripped)

	var b strings.Builder
	inRun := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('-')
			inRun = true
		}
	}

	return strings.Trim(b.String(), "-")
}
