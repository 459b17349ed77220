// Package service defines the interfaces the CLI depends on.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-sift/internal/model"
)

// TransactionFilter narrows transaction queries. Zero fields are ignored.
type TransactionFilter struct {
	Start             time.Time // Inclusive
	End               time.Time // Inclusive
	UncategorizedOnly bool
	Limit             int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID string, confidence float64) error

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int) (*model.Rule, error)
	GetRules(ctx context.Context, activeOnly bool) ([]model.Rule, error)
	SetRuleActive(ctx context.Context, id int, active bool) error
	DeleteRule(ctx context.Context, id int) error

	// Maintenance
	Migrate(ctx context.Context) error
	Close() error
}
