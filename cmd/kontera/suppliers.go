package main

import (
	"fmt"
	"log/slog"

	"github.com/konteragroup/kontera/internal/supplier"
	"github.com/spf13/cobra"
)

func suppliersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suppliers",
		Short: "Inspect learned supplier profiles",
	}

	cmd.AddCommand(suppliersListCmd())
	cmd.AddCommand(suppliersShowCmd())
	cmd.AddCommand(suppliersAliasCmd())

	return cmd
}

func suppliersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all supplier profiles for the company",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			company, err := requireCompany()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profiles, err := store.GetSupplierProfiles(ctx, company)
			if err != nil {
				return fmt.Errorf("failed to list supplier profiles: %w", err)
			}

			if len(profiles) == 0 {
				fmt.Println("No supplier profiles learned yet.")
				return nil
			}

			fmt.Printf("%-35s %-8s %-30s %6s %6s\n", "SUPPLIER", "ACCOUNT", "ACCOUNT NAME", "CONF", "TXNS")
			for _, p := range profiles {
				fmt.Printf("%-35s %-8s %-30s %5.0f%% %6d\n",
					truncateName(p.DisplayName, 35),
					p.DefaultAccount,
					truncateName(p.DefaultAccountName, 30),
					p.LearningStats.ConfidenceScore*100,
					p.LearningStats.TotalTransactions)
			}
			return nil
		},
	}
}

func suppliersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <supplier-name>",
		Short: "Show one supplier profile in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			company, err := requireCompany()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suppliers := supplier.NewStore(store, slog.Default())
			profile, err := suppliers.Get(ctx, company, args[0])
			if err != nil {
				return fmt.Errorf("failed to get supplier profile: %w", err)
			}
			if profile == nil {
				return fmt.Errorf("no profile learned for %q", args[0])
			}

			fmt.Printf("Supplier:   %s (%s)\n", profile.DisplayName, profile.NormalizedName)
			fmt.Printf("Category:   %s\n", profile.Category)
			fmt.Printf("Default:    %s  %s", profile.DefaultAccount, profile.DefaultAccountName)
			if profile.DefaultVatCode != "" {
				fmt.Printf("  (VAT %s)", profile.DefaultVatCode)
			}
			fmt.Println()
			fmt.Printf("Confidence: %.0f%%\n", profile.LearningStats.ConfidenceScore*100)
			fmt.Printf("Stats:      %d transactions, %d confirmed, %d corrections\n",
				profile.LearningStats.TotalTransactions,
				profile.LearningStats.CorrectPredictions,
				profile.LearningStats.Corrections)

			if profile.Patterns.TypicalAmountAvg > 0 {
				fmt.Printf("Amounts:    %.2f–%.2f (avg %.2f)\n",
					profile.Patterns.TypicalAmountMin,
					profile.Patterns.TypicalAmountMax,
					profile.Patterns.TypicalAmountAvg)
			}

			if len(profile.Aliases) > 0 {
				fmt.Println("Aliases:")
				for _, alias := range profile.Aliases {
					fmt.Printf("  %s\n", alias)
				}
			}

			if len(profile.AccountHistory) > 0 {
				fmt.Println("Account history:")
				for _, entry := range profile.AccountHistory {
					fmt.Printf("  %s  %-30s x%d  (total %.2f)\n",
						entry.Account, truncateName(entry.AccountName, 30), entry.Count, entry.TotalAmount)
				}
			}

			return nil
		},
	}
}

func suppliersAliasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alias <primary-name> <alias>",
		Short: "Register an alternative name for an existing supplier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			company, err := requireCompany()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suppliers := supplier.NewStore(store, slog.Default())
			if err := suppliers.AddAlias(ctx, company, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to add alias: %w", err)
			}

			fmt.Printf("Alias %q now resolves to %q\n", args[1], args[0])
			return nil
		},
	}
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return s[:maxLen]
	}
	return s[:maxLen-1] + "…"
}
