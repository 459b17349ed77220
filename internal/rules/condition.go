// Package rules evaluates user-defined categorization rules against
// transactions.
package rules

import (
	"regexp"
	"strings"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// EvaluateCondition reports whether txn satisfies cond. Malformed conditions
// (unknown field or operator, invalid regex, non-numeric operands) never
// match; they do not fail.
func EvaluateCondition(cond model.Condition, txn model.Transaction) bool {
	return evaluate(cond, txn, nil)
}

// EvaluateRule reports whether rule is active and its condition matches txn.
func EvaluateRule(rule model.Rule, txn model.Transaction) bool {
	return rule.IsActive && EvaluateCondition(rule.Condition, txn)
}

// patternLookup returns a precompiled regex for cond, if the caller has one.
// The bool is false when the caller did not compile this pattern.
type patternLookup func(cond model.Condition) (*regexp.Regexp, bool)

func evaluate(cond model.Condition, txn model.Transaction, lookup patternLookup) bool {
	value, ok := fieldString(cond.Field, txn)
	if !ok {
		return false
	}

	switch cond.Operator {
	case model.OpEquals:
		if cond.Field == model.FieldAmount {
			if bound, err := parseNumber(cond.Value); err == nil {
				n, _ := fieldNumber(cond.Field, txn)
				return n.Equal(bound)
			}
		}
		a, b := fold(value, cond), fold(cond.Value, cond)
		return a == b
	case model.OpContains:
		return strings.Contains(fold(value, cond), fold(cond.Value, cond))
	case model.OpStartsWith:
		return strings.HasPrefix(fold(value, cond), fold(cond.Value, cond))
	case model.OpEndsWith:
		return strings.HasSuffix(fold(value, cond), fold(cond.Value, cond))
	case model.OpRegex:
		re := compiled(cond, lookup)
		return re != nil && re.MatchString(value)
	case model.OpGreater:
		n, ok := fieldNumber(cond.Field, txn)
		bound, err := parseNumber(cond.Value)
		return ok && err == nil && n.GreaterThan(bound)
	case model.OpLess:
		n, ok := fieldNumber(cond.Field, txn)
		bound, err := parseNumber(cond.Value)
		return ok && err == nil && n.LessThan(bound)
	case model.OpBetween:
		n, ok := fieldNumber(cond.Field, txn)
		if !ok {
			return false
		}
		lo, hi, ok := parseRange(cond.Value)
		return ok && n.GreaterThanOrEqual(lo) && n.LessThanOrEqual(hi)
	}

	return false
}

// fieldString returns the string form of field. The amount is its absolute
// value in shortest decimal form, so -85.50 renders as "85.5". Numeric
// operators and amount equality compare decimals instead of this text.
func fieldString(field model.Field, txn model.Transaction) (string, bool) {
	switch field {
	case model.FieldMerchant:
		return txn.Merchant, true
	case model.FieldDescription:
		return txn.Description, true
	case model.FieldAmount:
		return txn.Amount.Abs().String(), true
	case model.FieldType:
		return string(txn.Kind()), true
	case model.FieldCounterpartyID:
		return txn.CounterpartyID, true
	}
	return "", false
}

func fieldNumber(field model.Field, txn model.Transaction) (decimal.Decimal, bool) {
	if field == model.FieldAmount {
		return txn.Amount.Abs(), true
	}
	s, ok := fieldString(field, txn)
	if !ok {
		return decimal.Zero, false
	}
	n, err := parseNumber(s)
	return n, err == nil
}

func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// parseRange splits "min,max" on the first comma.
func parseRange(s string) (lo, hi decimal.Decimal, ok bool) {
	minStr, maxStr, found := strings.Cut(s, ",")
	if !found {
		return decimal.Zero, decimal.Zero, false
	}
	lo, err := parseNumber(minStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	hi, err = parseNumber(maxStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return lo, hi, true
}

func fold(s string, cond model.Condition) string {
	if cond.CaseSensitive {
		return s
	}
	return cases.Fold().String(s)
}

func compiled(cond model.Condition, lookup patternLookup) *regexp.Regexp {
	if lookup != nil {
		if re, ok := lookup(cond); ok {
			return re
		}
	}
	re, err := common.CompilePattern(cond.Value, cond.CaseSensitive)
	if err != nil {
		return nil
	}
	return re
}
