package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, fingerprint, date, merchant, description, amount, currency,
	type, counterparty_id, source_id, category_id`

// SaveTransactions inserts transactions in a single database transaction.
// A repeated ID fails the whole batch with common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range transactions {
			txn := &transactions[i]
			_, err := stmt.ExecContext(ctx,
				txn.ID,
				txn.Fingerprint,
				txn.Day(),
				txn.Merchant,
				txn.Description,
				txn.Amount,
				txn.Currency,
				string(txn.Type),
				txn.CounterpartyID,
				txn.SourceID,
				nullString(txn.CategoryID),
			)
			if err != nil {
				if isConstraintViolation(err) {
					return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
				}
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// GetTransactions returns stored transactions ordered by date then ID.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return nil, ErrInvalidDateRange
	}

	var clauses []string
	var args []any
	if !filter.Start.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.Start.Format(model.DateLayout))
	}
	if !filter.End.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.End.Format(model.DateLayout))
	}
	if filter.UncategorizedOnly {
		clauses = append(clauses, "category_id IS NULL")
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// GetTransactionByID returns one transaction or common.ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransactionCategory records the category assigned to a transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id, categoryID string, confidence float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET category_id = ?, confidence = ? WHERE id = ?",
		categoryID, confidence, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return requireAffected(result, "transaction "+id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn      model.Transaction
		day      string
		kind     string
		amount   decimal.Decimal
		category sql.NullString
	)
	err := row.Scan(
		&txn.ID,
		&txn.Fingerprint,
		&day,
		&txn.Merchant,
		&txn.Description,
		&amount,
		&txn.Currency,
		&kind,
		&txn.CounterpartyID,
		&txn.SourceID,
		&category,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txn, err
		}
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	date, err := time.Parse(model.DateLayout, day)
	if err != nil {
		return txn, fmt.Errorf("transaction %s: %w", txn.ID, model.ErrInvalidDate)
	}
	txn.Date = date
	txn.Amount = amount
	txn.Type = model.TransactionType(kind)
	txn.CategoryID = category.String
	return txn, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", common.ErrNotFound, what)
	}
	return nil
}
