package main

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/Veraticus/spice-sift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groceryBatch(t *testing.T, ids ...string) []model.Transaction {
	t.Helper()
	return []model.Transaction{
		testutil.Txn(t, "2024-01-05", "SuperMart", "-85.50", testutil.WithID(ids[0])),
		testutil.Txn(t, "2024-01-05", "SuperMart", "-85.50", testutil.WithID(ids[1])),
		testutil.Txn(t, "2024-01-06", "Cafe Luna", "-3.20", testutil.WithID(ids[2])),
	}
}

func TestImportTransactions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.MustCreateRule(testutil.Rule(t, "groceries", model.FieldMerchant, model.OpContains, "mart", 0.9, 0))

	summary, err := importTransactions(ctx, db.Storage, groceryBatch(t, "a", "b", "c"), importOptions{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, importSummary{Total: 3, Unique: 3, Categorized: 2}, summary)

	stored, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 3)

	byID := make(map[string]model.Transaction, len(stored))
	for _, txn := range stored {
		byID[txn.ID] = txn
	}
	assert.NotEmpty(t, byID["a"].Fingerprint)
	assert.NotEqual(t, byID["a"].Fingerprint, byID["b"].Fingerprint, "identical purchases stay distinct")
	assert.Equal(t, "groceries", byID["a"].CategoryID)
	assert.Equal(t, "groceries", byID["b"].CategoryID)
	assert.False(t, byID["c"].IsCategorized())

	// Re-importing the same file under fresh IDs adds nothing.
	summary, err = importTransactions(ctx, db.Storage, groceryBatch(t, "x", "y", "z"), importOptions{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, importSummary{Total: 3, ExactDuplicates: 3}, summary)

	stored, err = db.Storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestImportTransactions_DryRun(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.MustCreateRule(testutil.Rule(t, "groceries", model.FieldMerchant, model.OpContains, "mart", 0.9, 0))

	summary, err := importTransactions(ctx, db.Storage, groceryBatch(t, "a", "b", "c"), importOptions{Workers: 2, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Unique)
	assert.Equal(t, 2, summary.Categorized)

	stored, err := db.Storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestImportTransactions_NearDuplicates(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.MustSaveTransactions(testutil.Txn(t, "2024-01-05", "Starbucks Coffee", "-4.50", testutil.WithID("stored")))

	incoming := []model.Transaction{
		testutil.Txn(t, "2024-01-05", "Starbucks Coffee", "-4.55", testutil.WithID("pending-settled")),
		testutil.Txn(t, "2024-01-06", "Starbucks Coffee", "-4.55", testutil.WithID("next-day")),
	}

	summary, err := importTransactions(ctx, db.Storage, incoming, importOptions{NearDuplicateThreshold: 0.6, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NearDuplicates)
	assert.Equal(t, 1, summary.Unique)

	_, err = db.Storage.GetTransactionByID(ctx, "next-day")
	require.NoError(t, err)
	_, err = db.Storage.GetTransactionByID(ctx, "pending-settled")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestImportTransactions_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := importTransactions(context.Background(), db.Storage, nil, importOptions{Workers: 1})
	assert.ErrorIs(t, err, common.ErrNoTransactions)
}
