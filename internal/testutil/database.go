// Package testutil provides shared test helpers: an in-memory database and
// transaction and rule fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/storage"
)

// TestDB wraps a migrated in-memory storage.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory SQLite storage that is closed when
// the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.MustSaveTransactions(testutil.NewTransaction(t, "2024-01-05", "SuperMart", "-85.50"))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustSaveTransactions stores txns or fails the test.
func (db *TestDB) MustSaveTransactions(txns ...model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to save transactions: %v", err)
	}
}

// MustCreateRule stores rule or fails the test, returning it with its ID.
func (db *TestDB) MustCreateRule(rule model.Rule) model.Rule {
	db.t.Helper()
	if err := db.Storage.CreateRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to create rule: %v", err)
	}
	return rule
}
