package commission

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// paymentDelimiters split compound labels such as "À vista / Antecipado".
const paymentDelimiters = "/|,;"

// CanonicalPaymentType folds a payment label to its comparison form:
// diacritics stripped, upper-cased, whitespace removed.
func CanonicalPaymentType(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToUpper(folded)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// PaymentTokens returns the canonical candidates of a sale's payment label:
// the whole label followed by each delimited part. Empty and duplicate
// tokens are dropped.
func PaymentTokens(raw string) []string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(s string) {
		c := CanonicalPaymentType(s)
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		tokens = append(tokens, c)
	}

	add(raw)
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(paymentDelimiters, r)
	}) {
		add(part)
	}
	return tokens
}

// MatchesPaymentType reports whether any token of raw equals a canonical
// allowed entry. An empty or blank allowed list matches nothing.
func MatchesPaymentType(raw string, allowed []string) bool {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if c := CanonicalPaymentType(a); c != "" {
			set[c] = true
		}
	}
	if len(set) == 0 {
		return false
	}
	for _, tok := range PaymentTokens(raw) {
		if set[tok] {
			return true
		}
	}
	return false
}
