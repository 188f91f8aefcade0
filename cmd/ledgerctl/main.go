// ledgerctl is the operator CLI for the retail ledger: schema migrations,
// the opening capital structure, categories, ledger export and the outbox.
//
// Usage (from backend directory):
//
//	DB_DRIVER=mysql DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/ledgerctl migrate
//	go run ./cmd/ledgerctl init-capital --owner-equity 20,000
package main

import (
	"fmt"
	"os"

	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/mmdatafocus/retail_ledger_backend/workflow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator tooling for the retail ledger",
	Long: `ledgerctl runs maintenance tasks against the ledger database.

Database settings come from the same DB_* environment variables (or .env file)
as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			config.GetLogger().SetLevel(logrus.InfoLevel)
		}
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress at info level")
}

// connect opens the database once; the CLI does not wait for it like the server does.
func connect() (*models.GormStore, error) {
	db, err := config.OpenDatabase()
	if err != nil {
		return nil, fmt.Errorf("connect database (driver=%s): %w", config.DatabaseDriver(), err)
	}
	config.SetDB(db)
	return models.NewGormStore(db), nil
}

func newEngine(store models.LedgerStore) *workflow.Engine {
	return workflow.NewEngine(store, workflow.WithLogger(config.GetLogger()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		if utils.IsKind(err, utils.KindStore) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
