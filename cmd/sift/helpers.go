package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/Veraticus/spice-sift/internal/storage"
)

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store service.Storage) {
	if err := store.Close(); err != nil {
		common.LogError(err, "failed to close storage", nil)
	}
}

// dateSpan returns the earliest and latest day in txns.
func dateSpan(txns []model.Transaction) (start, end time.Time) {
	for i, txn := range txns {
		if i == 0 || txn.Date.Before(start) {
			start = txn.Date
		}
		if i == 0 || txn.Date.After(end) {
			end = txn.Date
		}
	}
	return start, end
}
