package main

import (
	"fmt"
	"log/slog"

	"github.com/konteragroup/kontera/internal/learning"
	"github.com/konteragroup/kontera/internal/pattern"
	"github.com/konteragroup/kontera/internal/supplier"
	"github.com/spf13/cobra"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record a human account decision for a transaction",
		Long: `Feed one confirmed or corrected account decision back into the
learning stores. Pass --suggested with the account that was originally
predicted; when it differs from --account the decision is recorded as a
correction and the supplier's confidence is decayed.`,
		RunE: runLearn,
	}

	cmd.Flags().String("supplier", "", "supplier name (required)")
	cmd.Flags().String("description", "", "transaction description")
	cmd.Flags().Float64("amount", 0, "transaction amount")
	cmd.Flags().String("date", "", "transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().String("account", "", "the decided GL account (required)")
	cmd.Flags().String("account-name", "", "the decided account's name")
	cmd.Flags().String("vat", "", "VAT code for the decision")
	cmd.Flags().String("cost-center", "", "cost center for the decision")
	cmd.Flags().String("suggested", "", "the account that was suggested before the decision")
	_ = cmd.MarkFlagRequired("supplier")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runLearn(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	company, err := requireCompany()
	if err != nil {
		return err
	}

	txn, err := transactionFromFlags(cmd)
	if err != nil {
		return err
	}

	account, _ := cmd.Flags().GetString("account")
	accountName, _ := cmd.Flags().GetString("account-name")
	vat, _ := cmd.Flags().GetString("vat")
	costCenter, _ := cmd.Flags().GetString("cost-center")
	suggested, _ := cmd.Flags().GetString("suggested")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	suppliers := supplier.NewStore(store, slog.Default())
	patterns := pattern.NewStore(store, slog.Default())
	loop := learning.NewLoop(suppliers, patterns, store, slog.Default())

	feedback := learning.Feedback{
		Account:          account,
		AccountName:      accountName,
		VatCode:          vat,
		CostCenter:       costCenter,
		SuggestedAccount: suggested,
	}

	profile, err := loop.Apply(ctx, company, txn, feedback)
	if err != nil {
		return fmt.Errorf("failed to apply feedback: %w", err)
	}

	kind := "confirmation"
	if feedback.IsCorrection() {
		kind = "correction"
	}

	fmt.Printf("Recorded %s for %s\n", kind, profile.DisplayName)
	fmt.Printf("Default account: %s  %s\n", profile.DefaultAccount, profile.DefaultAccountName)
	fmt.Printf("Confidence:      %.0f%%  (%d transactions, %d corrections)\n",
		profile.LearningStats.ConfidenceScore*100,
		profile.LearningStats.TotalTransactions,
		profile.LearningStats.Corrections)

	return nil
}
