package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/models/reports"
	"github.com/spf13/cobra"
)

var exportLedgerCmd = &cobra.Command{
	Use:     "export-ledger",
	Short:   "Write the ledger and trial balance to an .xlsx workbook",
	Example: `  ledgerctl export-ledger --out ledger.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		store, err := connect()
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := reports.ExportLedger(context.Background(), store, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

var trialBalanceCmd = &cobra.Command{
	Use:   "trial-balance",
	Short: "Print debit and credit totals per ledger account",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := connect()
		if err != nil {
			return err
		}
		entries, err := store.ListLedgerEntries(context.Background(), models.LedgerFilter{Ascending: true})
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %14s %14s %14s\n", "account", "debit", "credit", "balance")
		for _, row := range reports.GetTrialBalance(entries) {
			fmt.Fprintf(w, "%-20s %14s %14s %14s\n", row.Account,
				row.Debit.StringFixed(2), row.Credit.StringFixed(2), row.Balance.StringFixed(2))
		}
		return nil
	},
}

func init() {
	exportLedgerCmd.Flags().StringP("out", "o", "ledger.xlsx", "Output file")
	rootCmd.AddCommand(exportLedgerCmd, trialBalanceCmd)
}
