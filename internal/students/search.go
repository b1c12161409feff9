package students

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips combining marks so "Muñoz" matches "munoz".
func Fold(s string) string {
	out, _, err := transform.String(foldAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// matches reports whether the student's display name or RUT contains the
// already-folded query.
func matches(s Student, foldedQuery string) bool {
	if foldedQuery == "" {
		return true
	}
	name := Fold(s.FirstName + " " + s.PaternalLastName + " " + s.MaternalLastName)
	return strings.Contains(name, foldedQuery) || strings.Contains(strings.ToLower(s.RUT), foldedQuery)
}
