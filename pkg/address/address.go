// Package address splits free-form street lines into street, house number
// and number suffix as required by NL/BE carriers.
package address

import (
	"regexp"
	"strings"
)

// Street is a parsed address line. Number and Suffix are empty when absent.
type Street struct {
	Street string
	Number string
	Suffix string
}

var (
	whitespace = regexp.MustCompile(`\s+`)

	// 12, 12A, 12bis
	numberOnly = regexp.MustCompile(`^(\d+)([A-Za-z]{0,5})$`)
	// Kerkstraat 12, Kerkstraat 12 A, Rue de la Loi 16-2
	trailing = regexp.MustCompile(`^(.*?) +(\d+)\s*([^\s]*)$`)
	// 12 Kerkstraat, 12A Kerkstraat, 12-2 Kerkstraat
	leading = regexp.MustCompile(`^(\d+)([A-Za-z]{1,5}|[-/]\S+)?\s+(.+)$`)
	digits  = regexp.MustCompile(`\d+`)
)

func normalize(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Parse splits an address into street, number and suffix. It never fails:
// when no number can be found the first line is returned as the street, and
// a blank first line yields an empty result.
func Parse(line1, line2 string) Street {
	raw := strings.TrimSpace(line1)
	l1 := normalize(line1)
	l2 := normalize(line2)

	if l1 == "" {
		return Street{}
	}

	if m := numberOnly.FindStringSubmatch(l1); m != nil && l2 != "" {
		if lm := leading.FindStringSubmatch(l2); lm != nil {
			return Street{Street: lm[3], Number: lm[1], Suffix: cleanSuffix(lm[2])}
		}
		return Street{Street: l2, Number: m[1], Suffix: m[2]}
	}

	if m := trailing.FindStringSubmatch(l1); m != nil && m[1] != "" {
		return Street{Street: m[1], Number: m[2], Suffix: cleanSuffix(m[3])}
	}

	if m := leading.FindStringSubmatch(l1); m != nil {
		return Street{Street: m[3], Number: m[1], Suffix: cleanSuffix(m[2])}
	}

	if n := digits.FindString(l2); n != "" {
		rest := strings.TrimSpace(strings.Replace(l2, n, "", 1))
		return Street{Street: raw, Number: n, Suffix: cleanSuffix(rest)}
	}

	return Street{Street: raw}
}

func cleanSuffix(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, "-/"))
}

// HasNumber reports whether a house number was found.
func (s Street) HasNumber() bool {
	return s.Number != ""
}
