// Package normalize canonicalizes the transaction fields that feed fingerprinting
// and similarity scoring.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownMerchant replaces merchant names that normalize to nothing.
const UnknownMerchant = "unknown"

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	datePrefixPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ]`)
)

// Clean lower-cases s, drops everything that is not a word character or
// whitespace and collapses whitespace runs. The result may be empty.
func Clean(s string) string {
	// A Caser is stateful, so one is built per call.
	lowered := cases.Lower(language.Und).String(s)
	stripped := nonWordPattern.ReplaceAllString(lowered, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))
}

// Merchant returns the canonical form of a merchant name. Names that clean to
// the empty string become UnknownMerchant.
func Merchant(raw string) string {
	cleaned := Clean(raw)
	if cleaned == "" {
		return UnknownMerchant
	}
	return cleaned
}

// Date truncates a timestamp to its calendar day. Inputs without a time
// component are returned trimmed and otherwise untouched; no timezone
// conversion happens.
func Date(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := datePrefixPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// Amount drops the sign. A refund and its original charge share a magnitude.
func Amount(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs()
}

// Currency returns the trimmed upper-case currency code.
func Currency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
