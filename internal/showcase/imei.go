package showcase

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// DigitsOnly returns the decimal digits of raw in order. Full-width digits
// are folded to ASCII first.
func DigitsOnly(raw string) string {
	folded := width.Fold.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matcher matches stored IMEIs that contain a digit sequence in order, each
// digit optionally followed by non-digit noise. Its source is a POSIX
// pattern usable with the PostgreSQL ~ operator.
type Matcher struct {
	digits string
	source string
	re     *regexp.Regexp
}

// DigitsInOrderPattern builds the loose matcher for digits. Non-digit input
// characters are ignored; an empty digit string yields the zero Matcher.
func DigitsInOrderPattern(digits string) Matcher {
	digits = DigitsOnly(digits)
	if digits == "" {
		return Matcher{}
	}
	var b strings.Builder
	for _, d := range digits {
		b.WriteRune(d)
		b.WriteString("[^0-9]*")
	}
	source := b.String()
	return Matcher{digits: digits, source: source, re: regexp.MustCompile(source)}
}

// Match reports whether s satisfies the pattern.
func (m Matcher) Match(s string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(s)
}

// String returns the pattern source.
func (m Matcher) String() string { return m.source }

// Digits returns the digit sequence the matcher was built from.
func (m Matcher) Digits() string { return m.digits }

// IsZero reports whether the matcher was built from no digits.
func (m Matcher) IsZero() bool { return m.digits == "" }
