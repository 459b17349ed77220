// Package model defines the core data structures shared by the sift packages.
package model

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Veraticus/spice-sift/internal/normalize"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day layout used for dates throughout sift.
const DateLayout = "2006-01-02"

// Construction errors.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidDate     = errors.New("invalid date")
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// TransactionType distinguishes money going out from money coming in.
type TransactionType string

// Transaction type constants.
const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
)

// Transaction is a single imported transaction. Values are treated as
// immutable once built; the sift packages never modify one in place.
type Transaction struct {
	Date           time.Time
	Amount         decimal.Decimal
	ID             string
	SourceID       string
	Merchant       string
	Description    string
	Currency       string
	Type           TransactionType // Optional; derived from the amount sign when empty
	CounterpartyID string
	CategoryID     string // Empty until categorized
	Fingerprint    string // Stored fingerprint when loaded from persistence
}

// NewTransaction builds a Transaction from raw parsed fields, rejecting
// malformed money, currency codes and dates.
func NewTransaction(date, merchant, description, amount, currency string) (Transaction, error) {
	day, err := ParseDay(date)
	if err != nil {
		return Transaction{}, err
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	code := normalize.Currency(currency)
	if !currencyPattern.MatchString(code) {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	return Transaction{
		Date:        day,
		Merchant:    merchant,
		Description: description,
		Amount:      value,
		Currency:    code,
	}, nil
}

// ParseDay parses a calendar day, dropping any time component first.
func ParseDay(raw string) (time.Time, error) {
	day, err := time.Parse(DateLayout, normalize.Date(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return day, nil
}

// Day returns the transaction date as YYYY-MM-DD.
func (t Transaction) Day() string {
	return t.Date.Format(DateLayout)
}

// Kind returns the explicit type, or infers it from the amount sign.
func (t Transaction) Kind() TransactionType {
	if t.Type != "" {
		return t.Type
	}
	if t.Amount.IsNegative() {
		return TypeExpense
	}
	return TypeIncome
}

// IsCategorized reports whether a category has been assigned.
func (t Transaction) IsCategorized() bool {
	return t.CategoryID != ""
}
