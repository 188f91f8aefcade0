package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/mmdatafocus/retail_ledger_backend/workflow"
	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and drive the ledger event outbox",
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outbox events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := connect()
		if err != nil {
			return err
		}
		events, err := store.ListOutboxEvents(context.Background(), models.OutboxFilter{
			Status: strings.ToUpper(strings.TrimSpace(status)),
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tREFERENCE\tSTATUS\tATTEMPTS\tLAST ERROR")
		for _, ev := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", ev.ID, ev.EventType, ev.ReferenceId,
				ev.PublishStatus, ev.PublishAttempts, utils.DereferencePtr(ev.LastPublishError))
		}
		return w.Flush()
	},
}

var outboxReplayCmd = &cobra.Command{
	Use:   "replay ID",
	Short: "Move a FAILED or DEAD event back to PENDING",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
			return utils.NewValidationError("event id must be a positive integer")
		}
		store, err := connect()
		if err != nil {
			return err
		}
		rec, err := store.ReplayOutboxEvent(context.Background(), id, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "event %d is %s\n", rec.ID, rec.PublishStatus)
		return nil
	},
}

var outboxDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Publish due outbox events once and exit",
	Long: `Runs a single dispatcher pass, the same one the API server runs in the
background. Useful when OUTBOX_PUBLISHING_ENABLED=false on the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := connect()
		if err != nil {
			return err
		}
		logger := config.GetLogger()
		d := workflow.NewOutboxDispatcher(store, workflow.NewPublisherFromConfig(logger), logger).
			WithRetrySettings(config.GetOutboxRetrySettings())
		sent := d.DispatchOnce(context.Background())
		fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", sent)
		return nil
	},
}

func init() {
	outboxListCmd.Flags().String("status", "", "Only events in this status (PENDING, FAILED, DEAD, ...)")
	outboxListCmd.Flags().Int("limit", 50, "Maximum rows")
	outboxCmd.AddCommand(outboxListCmd, outboxReplayCmd, outboxDispatchCmd)
	rootCmd.AddCommand(outboxCmd)
}
