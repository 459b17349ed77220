// Package similarity scores how alike two merchant or description strings,
// and two whole transactions, are.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/normalize"
	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// FuzzyThreshold is the edit similarity above which two strings count as a
// fuzzy match in Composite.
const FuzzyThreshold = 0.8

// Point allocations for Composite. Merchant identity is the strongest signal,
// amount the weakest; the maxima sum to 1.
const (
	merchantExact    = 0.50
	merchantContains = 0.40
	merchantFuzzy    = 0.30

	descriptionExact    = 0.30
	descriptionContains = 0.25
	descriptionFuzzy    = 0.15

	amountClose      = 0.20
	amountNear       = 0.10
	amountCloseRatio = 0.9
	amountNearRatio  = 0.7
)

// unitCosts weighs insertion, deletion and substitution equally.
var unitCosts = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Result describes how similar two transactions are.
type Result struct {
	Score            float64
	AmountSimilarity float64
	MerchantMatch    bool
	DescriptionMatch bool
}

// TokenSimilarity returns the Jaccard index of the whitespace token sets of a
// and b after cleaning. Strings that clean to the same value score 1.
func TokenSimilarity(a, b string) float64 {
	ca, cb := normalize.Clean(a), normalize.Clean(b)
	if ca == cb {
		return 1
	}

	setA := tokenSet(ca)
	setB := tokenSet(cb)

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// EditSimilarity returns 1 - levenshtein(a, b)/maxLen, measured in runes.
// Two empty strings score 1.
func EditSimilarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), unitCosts)
	return clamp(float64(maxLen-distance) / float64(maxLen))
}

// Composite combines merchant, description and amount closeness into a single
// score in [0, 1].
func Composite(a, b model.Transaction) Result {
	merchant := tiered(a.Merchant, b.Merchant, merchantExact, merchantContains, merchantFuzzy)
	description := tiered(a.Description, b.Description, descriptionExact, descriptionContains, descriptionFuzzy)
	amountSim := AmountSimilarity(a.Amount, b.Amount)

	var amount float64
	switch {
	case amountSim > amountCloseRatio:
		amount = amountClose
	case amountSim > amountNearRatio:
		amount = amountNear
	}

	return Result{
		Score:            clamp(round(merchant + description + amount)),
		MerchantMatch:    merchant > 0,
		DescriptionMatch: description > 0,
		AmountSimilarity: amountSim,
	}
}

// tiered awards exact, then containment, then fuzzy points. Either side being
// empty after cleaning scores nothing.
func tiered(a, b string, exact, contains, fuzzy float64) float64 {
	ca, cb := normalize.Clean(a), normalize.Clean(b)
	if ca == "" || cb == "" {
		return 0
	}
	switch {
	case ca == cb:
		return exact
	case strings.Contains(ca, cb) || strings.Contains(cb, ca):
		return contains
	case EditSimilarity(ca, cb) > FuzzyThreshold:
		return fuzzy
	}
	return 0
}

// AmountSimilarity is the ratio of the smaller to the larger absolute amount.
// Two zero amounts are identical; a zero against a non-zero amount scores 0.
func AmountSimilarity(a, b decimal.Decimal) float64 {
	x, y := a.Abs(), b.Abs()
	if x.IsZero() && y.IsZero() {
		return 1
	}
	if x.IsZero() || y.IsZero() {
		return 0
	}
	lo, hi := decimal.Min(x, y), decimal.Max(x, y)
	ratio, _ := lo.Div(hi).Float64()
	return clamp(ratio)
}

// round trims float noise from summed tier points so 0.4+0.3+0.2 is 0.9.
func round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
