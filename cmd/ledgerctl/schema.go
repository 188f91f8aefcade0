package main

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/mmdatafocus/retail_ledger_backend/workflow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger tables",
	Long: `Runs AutoMigrate for every ledger table. Run this as a separate job when the
API server starts with SKIP_MIGRATIONS=true.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		if err := models.MigrateTable(config.GetDB()); err != nil {
			return utils.NewStoreError(err, "migrate")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var initCapitalCmd = &cobra.Command{
	Use:   "init-capital",
	Short: "Create the capital structure with the opening owner equity",
	Long: `Creates the single capital structure row. When it already exists the stored
row is printed and left unchanged.`,
	Example: `  ledgerctl init-capital --owner-equity "20,000"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("owner-equity")
		equity, err := utils.ParseAmount(raw)
		if err != nil {
			return utils.NewValidationError("invalid --owner-equity %q: %s", raw, err.Error())
		}
		if equity.IsNegative() {
			return utils.NewValidationError("--owner-equity must not be negative")
		}
		store, err := connect()
		if err != nil {
			return err
		}
		cs, err := newEngine(store).EnsureCapitalStructure(context.Background(), equity)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "capital structure: total_assets=%s owner_equity=%s retained_earnings=%s\n",
			cs.TotalAssets.StringFixed(2), cs.OwnerEquity.StringFixed(2), cs.RetainedEarnings.StringFixed(2))
		return nil
	},
}

var createCategoryCmd = &cobra.Command{
	Use:     "create-category NAME",
	Short:   "Create a category with its allocated capital",
	Args:    cobra.ExactArgs(1),
	Example: `  ledgerctl create-category Beverages --allocated-capital 5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("allocated-capital")
		allocated, err := utils.ParseAmount(raw)
		if err != nil {
			return utils.NewValidationError("invalid --allocated-capital %q: %s", raw, err.Error())
		}
		store, err := connect()
		if err != nil {
			return err
		}
		ctx := utils.SetRequestSourceInContext(context.Background(), "cli")
		category, err := newEngine(store).CreateCategory(ctx, workflow.CreateCategoryRequest{
			Name:             args[0],
			AllocatedCapital: allocated,
		})
		if err != nil {
			return err
		}
		config.GetLogger().WithFields(logrus.Fields{"category_id": category.ID.String()}).Info("category created")
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", category.ID, category.Name, category.AllocatedCapital.StringFixed(2))
		return nil
	},
}

func init() {
	initCapitalCmd.Flags().String("owner-equity", "0", "Opening owner equity")
	createCategoryCmd.Flags().String("allocated-capital", "0", "Capital allocated to the category")
	rootCmd.AddCommand(migrateCmd, initCapitalCmd, createCategoryCmd)
}
