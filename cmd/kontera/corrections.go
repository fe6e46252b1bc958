package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func correctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "List recorded account corrections",
		Long: `List the correction audit trail: every time a human overrode a
suggested account, with the original and corrected accounts.`,
		RunE: runCorrections,
	}

	cmd.Flags().Duration("since", 30*24*time.Hour, "how far back to list corrections")

	return cmd
}

func runCorrections(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	company, err := requireCompany()
	if err != nil {
		return err
	}

	since, _ := cmd.Flags().GetDuration("since")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.GetCorrections(ctx, company, time.Now().Add(-since))
	if err != nil {
		return fmt.Errorf("failed to list corrections: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No corrections recorded in the selected window.")
		return nil
	}

	fmt.Printf("%-16s %-30s %-8s %-8s %s\n", "WHEN", "SUPPLIER", "FROM", "TO", "ACCOUNT NAME")
	for _, r := range records {
		fmt.Printf("%-16s %-30s %-8s %-8s %s\n",
			r.Timestamp.Format("2006-01-02 15:04"),
			truncateName(r.NormalizedName, 30),
			r.OriginalAccount,
			r.CorrectedAccount,
			r.CorrectedAccountName)
	}

	fmt.Printf("\n%d corrections\n", len(records))
	return nil
}
