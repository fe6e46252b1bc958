package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/konteragroup/kontera/internal/engine"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/pattern"
	"github.com/konteragroup/kontera/internal/supplier"
	"github.com/spf13/cobra"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the GL account for a transaction",
		Long: `Predict which GL account a transaction should be coded to, using
learned supplier history, transaction patterns, heuristics and, when
nothing learned is confident enough, AI inference.`,
		RunE: runPredict,
	}

	cmd.Flags().String("supplier", "", "supplier name (required)")
	cmd.Flags().String("description", "", "transaction description")
	cmd.Flags().Float64("amount", 0, "transaction amount")
	cmd.Flags().String("date", "", "transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("no-ai", false, "disable the AI inference fallback")
	_ = cmd.MarkFlagRequired("supplier")

	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	company, err := requireCompany()
	if err != nil {
		return err
	}

	txn, err := transactionFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var inferrer engine.AccountInferrer
	if noAI, _ := cmd.Flags().GetBool("no-ai"); !noAI {
		client, clientErr := initInference()
		if clientErr != nil {
			// Prediction degrades without AI rather than failing outright.
			slog.Warn("AI inference unavailable, predicting from learned data only", "error", clientErr)
		} else {
			inferrer = client
		}
	}

	suppliers := supplier.NewStore(store, slog.Default())
	patterns := pattern.NewStore(store, slog.Default())
	predictor := engine.New(suppliers, patterns, inferrer, slog.Default())

	prediction := predictor.Predict(ctx, company, txn)

	fmt.Printf("Account:     %s  %s\n", prediction.Account, prediction.AccountName)
	fmt.Printf("Confidence:  %.0f%%\n", prediction.Confidence*100)
	fmt.Printf("Source:      %s\n", prediction.Source)
	fmt.Printf("Reasoning:   %s\n", prediction.Reasoning)

	if len(prediction.Alternatives) > 0 {
		fmt.Println("Alternatives:")
		for _, alt := range prediction.Alternatives {
			fmt.Printf("  %s  %-35s %.0f%%  (%s)\n", alt.Account, alt.AccountName, alt.Confidence*100, alt.Source)
		}
	}

	return nil
}

// transactionFromFlags builds a transaction from the shared predict/learn
// flag set.
func transactionFromFlags(cmd *cobra.Command) (model.Transaction, error) {
	supplierName, _ := cmd.Flags().GetString("supplier")
	description, _ := cmd.Flags().GetString("description")
	amount, _ := cmd.Flags().GetFloat64("amount")
	dateStr, _ := cmd.Flags().GetString("date")

	date := time.Now()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", dateStr, err)
		}
		date = parsed
	}

	return model.Transaction{
		SupplierName: supplierName,
		Description:  description,
		Amount:       amount,
		Date:         date,
	}, nil
}
