package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Veraticus/spice-sift/internal/model"
)

var txnSeq atomic.Int64

// NewTransaction builds a EUR transaction with a generated ID or fails the test.
func NewTransaction(t *testing.T, date, merchant, amount string) model.Transaction {
	t.Helper()
	txn, err := model.NewTransaction(date, merchant, "", amount, "EUR")
	if err != nil {
		t.Fatalf("invalid fixture transaction: %v", err)
	}
	txn.ID = fmt.Sprintf("txn-%d", txnSeq.Add(1))
	return txn
}

// TransactionOption customizes a fixture transaction.
type TransactionOption func(*model.Transaction)

// WithID sets the transaction ID.
func WithID(id string) TransactionOption {
	return func(txn *model.Transaction) { txn.ID = id }
}

// WithDescription sets the description.
func WithDescription(desc string) TransactionOption {
	return func(txn *model.Transaction) { txn.Description = desc }
}

// WithCategory marks the transaction as categorized.
func WithCategory(categoryID string) TransactionOption {
	return func(txn *model.Transaction) { txn.CategoryID = categoryID }
}

// WithCounterparty sets the counterparty ID.
func WithCounterparty(id string) TransactionOption {
	return func(txn *model.Transaction) { txn.CounterpartyID = id }
}

// WithType sets an explicit transaction type.
func WithType(kind model.TransactionType) TransactionOption {
	return func(txn *model.Transaction) { txn.Type = kind }
}

// Txn is NewTransaction with options applied.
func Txn(t *testing.T, date, merchant, amount string, opts ...TransactionOption) model.Transaction {
	t.Helper()
	txn := NewTransaction(t, date, merchant, amount)
	for _, opt := range opts {
		opt(&txn)
	}
	return txn
}

// Rule builds an active rule or fails the test.
func Rule(t *testing.T, categoryID string, field model.Field, op model.Operator, value string, confidence float64, priority int) model.Rule {
	t.Helper()
	rule, err := model.NewRule(fmt.Sprintf("%s %s %s", field, op, value), categoryID, model.Condition{
		Field:    field,
		Operator: op,
		Value:    value,
	}, confidence, priority)
	if err != nil {
		t.Fatalf("invalid fixture rule: %v", err)
	}
	return rule
}
