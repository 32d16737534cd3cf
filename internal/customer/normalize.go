package customer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PhoneRules parameterizes phone normalization for one dialing plan.
type PhoneRules struct {
	// CountryCode is the international prefix without "+" or "00", e.g. "33".
	CountryCode string
	// NationalLength is the number of digits in a national number after the
	// trunk prefix is removed, e.g. 9 for French numbers.
	NationalLength int
}

// DefaultPhoneRules covers the primary market's numbering plan.
var DefaultPhoneRules = PhoneRules{CountryCode: "33", NationalLength: 9}

// NormalizePhone reduces a raw phone string to its core national digits.
// It strips every non-digit, then drops a leading country prefix or trunk
// zero when the remaining length matches the national plan. Unknown shapes
// are returned as their full digit string. Total: never fails, empty input
// yields empty output.
func NormalizePhone(raw string, rules PhoneRules) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	if rules.CountryCode != "" {
		// "00" and "+" are equivalent international prefixes; "+" is already
		// gone after the digit strip.
		withCC := strings.TrimPrefix(digits, "00")
		if strings.HasPrefix(withCC, rules.CountryCode) &&
			len(withCC) >= len(rules.CountryCode)+rules.NationalLength {
			return withCC[len(rules.CountryCode):]
		}
	}

	if digits[0] == '0' && len(digits) == rules.NationalLength+1 {
		return digits[1:]
	}

	return digits
}

// nameFolder strips diacritics so accented and plain spellings share a key.
var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName reduces a raw display name to its canonical matching key:
// diacritics folded, lowercased, punctuation collapsed to spaces, internal
// whitespace runs collapsed to a single space, trimmed. An empty key means
// the record cannot participate in matching.
func NormalizeName(raw string) string {
	folded, _, err := transform.String(nameFolder, raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NameKey builds the matching key for a customer, preferring the display
// name and falling back to "first last".
func NameKey(c Customer) string {
	if key := NormalizeName(c.DisplayName); key != "" {
		return key
	}
	return NormalizeName(c.FirstName + " " + c.LastName)
}
