package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/Veraticus/spice-sift/internal/dedupe"
	"github.com/Veraticus/spice-sift/internal/fingerprint"
	"github.com/Veraticus/spice-sift/internal/model"
	"github.com/Veraticus/spice-sift/internal/service"
	"github.com/spf13/cobra"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <file.json>",
		Short: "Print the fingerprint of every record in a file",
		Long: `Print one fingerprint per record, computed the way import computes them.
Identical records later in the file get a position-qualified fingerprint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txns, rejected, err := readRecordsFile(args[0])
			if err != nil {
				return err
			}
			for _, rerr := range rejected {
				slog.Warn("Skipping invalid record", "index", rerr.Index, "error", rerr.Err)
			}
			return writeFingerprints(cmd.OutOrStdout(), txns)
		},
	}
}

func writeFingerprints(out io.Writer, txns []model.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, fp := range fingerprint.Batch(txns) {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fp, txns[i].Day(), txns[i].Merchant, txns[i].Amount.StringFixed(2)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <hash>...",
		Short: "Check fingerprints against stored transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			checks, err := checkHashes(ctx, store, args)
			if err != nil {
				return err
			}
			return writeHashChecks(cmd.OutOrStdout(), checks)
		},
	}
}

func checkHashes(ctx context.Context, store service.Storage, hashes []string) ([]dedupe.HashCheck, error) {
	existing, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load stored transactions: %w", err)
	}
	return dedupe.CheckHashes(hashes, existing), nil
}

func writeHashChecks(out io.Writer, checks []dedupe.HashCheck) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range checks {
		status := "new"
		if c.IsDuplicate {
			status = "duplicate of " + c.ExistingID
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", c.Hash, status); err != nil {
			return err
		}
	}
	return w.Flush()
}
