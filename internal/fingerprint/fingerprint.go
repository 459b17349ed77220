// Package fingerprint computes the deterministic identity key used for
// duplicate detection.
//
// The hash is a Java-style 32-bit string hash rendered in base 36. It only has
// to be stable and rarely collide across tens of thousands of transactions; it
// is not resistant to crafted input.
package fingerprint

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/normalize"
	"github.com/shopspring/decimal"
)

// Separator joins the canonical fields.
const Separator = "_"

// Canonical returns the string that gets hashed.
func Canonical(date, merchant string, amount decimal.Decimal, currency, disambiguator string) string {
	parts := []string{
		normalize.Date(date),
		normalize.Merchant(merchant),
		normalize.Amount(amount).StringFixed(2),
		normalize.Currency(currency),
	}
	if disambiguator != "" {
		parts = append(parts, disambiguator)
	}
	return strings.Join(parts, Separator)
}

// Compute fingerprints the normalized fields. An empty disambiguator is
// omitted from the canonical string.
func Compute(date, merchant string, amount decimal.Decimal, currency, disambiguator string) string {
	return hash(Canonical(date, merchant, amount, currency, disambiguator))
}

// Of fingerprints a transaction without a disambiguator.
func Of(txn model.Transaction) string {
	return Compute(txn.Day(), txn.Merchant, txn.Amount, txn.Currency, "")
}

// Batch fingerprints txns in order. The first occurrence of a fingerprint keeps
// it; later occurrences within the same batch are re-hashed with their position
// so identical purchases on the same day stay distinct.
func Batch(txns []model.Transaction) []string {
	out := make([]string, len(txns))
	seen := make(map[string]int, len(txns))

	for i, txn := range txns {
		base := Of(txn)
		seen[base]++
		if seen[base] == 1 {
			out[i] = base
			continue
		}
		out[i] = Compute(txn.Day(), txn.Merchant, txn.Amount, txn.Currency, Disambiguator(i))
	}

	return out
}

// Disambiguator returns the suffix used for the item at index.
func Disambiguator(index int) string {
	return fmt.Sprintf("idx_%d", index)
}

// hash runs h = h*31 + c over the UTF-16 code units of s with signed 32-bit
// wraparound, then renders |h| in base 36.
func hash(s string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
