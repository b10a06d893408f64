// Package normalize canonicalizes user-supplied catalog and account data.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text trims surrounding whitespace, drops null bytes and composes the string to NFC.
// Titles, authors and names pass through it before storage.
func Text(raw string) string {
	return strings.TrimSpace(norm.NFC.String(sanitizeString(raw)))
}

// Email lowercases and trims an address. Lookups and uniqueness use this form.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(sanitizeString(raw)))
}

// ISBN reduces an ISBN to its digits and an optional trailing X.
// "978-0-441-17271-9" -> "9780441172719", "0 306 40615 x" -> "030640615X".
// Full-width digits are folded by NFKC first.
func ISBN(raw string) string {
	s := norm.NFKC.String(sanitizeString(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// ValidISBN reports whether a normalized ISBN carries a correct ISBN-10 or ISBN-13 checksum.
func ValidISBN(isbn string) bool {
	switch len(isbn) {
	case 10:
		return validISBN10(isbn)
	case 13:
		return validISBN13(isbn)
	default:
		return false
	}
}

func validISBN10(isbn string) bool {
	sum := 0
	for i := range 10 {
		c := isbn[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(isbn string) bool {
	sum := 0
	for i := range 13 {
		c := isbn[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}

// Fold lowercases and strips diacritics for search matching.
// "Les Misérables" -> "les miserables".
func Fold(raw string) string {
	s := norm.NFKD.String(sanitizeString(raw))
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeString removes null bytes, which break both SQLite text and JSON.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
