package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/google/uuid"
)

// record is one transaction in an import file.
type record struct {
	ID             string      `json:"id"`
	Date           string      `json:"date"`
	Merchant       string      `json:"merchant"`
	Description    string      `json:"description"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	Type           string      `json:"type"`
	CounterpartyID string      `json:"counterparty_id"`
	SourceID       string      `json:"source_id"`
}

// recordError reports a record that could not be turned into a transaction.
type recordError struct {
	Err   error
	Index int
}

func (e recordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e recordError) Unwrap() error {
	return e.Err
}

// readRecordsFile opens path and decodes it with decodeRecords.
func readRecordsFile(path string) ([]model.Transaction, []recordError, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return decodeRecords(f)
}

// decodeRecords reads a JSON array of records. Malformed records are
// returned as recordErrors and skipped; a malformed document is an error.
// Records without an ID get a random one.
func decodeRecords(r io.Reader) ([]model.Transaction, []recordError, error) {
	var records []record
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err)
	}

	txns := make([]model.Transaction, 0, len(records))
	var rejected []recordError
	for i, rec := range records {
		txn, err := rec.transaction()
		if err != nil {
			rejected = append(rejected, recordError{Index: i, Err: err})
			continue
		}
		txns = append(txns, txn)
	}
	return txns, rejected, nil
}

var errUnknownType = errors.New("unknown transaction type")

func (r record) transaction() (model.Transaction, error) {
	txn, err := model.NewTransaction(r.Date, r.Merchant, r.Description, r.Amount.String(), r.Currency)
	if err != nil {
		return model.Transaction{}, err
	}

	switch kind := model.TransactionType(r.Type); kind {
	case "", model.TypeExpense, model.TypeIncome, model.TypeTransfer:
		txn.Type = kind
	default:
		return model.Transaction{}, fmt.Errorf("%w: %q", errUnknownType, r.Type)
	}

	txn.ID = r.ID
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.CounterpartyID = r.CounterpartyID
	txn.SourceID = r.SourceID
	return txn, nil
}
