package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akeren/acs-site/config"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newDispatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatches",
		Short: "Inspect contact form relay outcomes",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent relay attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(config.NewDBConfigFromEnv(), func(db *gorm.DB) error {
				_, service, cleanup, err := newContactService(db)
				if err != nil {
					return err
				}
				defer cleanup()

				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()

				records, err := service.RecentDispatches(ctx, limit)
				if err != nil {
					return err
				}

				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No dispatch records found")
					return nil
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.Header("Created", "Outcome", "Provider", "Message ID", "Latency (ms)", "Correlation ID")
				for _, r := range records {
					table.Append(r.CreatedAt, r.Outcome, r.Provider, r.MessageID, strconv.FormatInt(r.LatencyMs, 10), r.CorrelationID)
				}
				return table.Render()
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "number of records to show (max 500)")

	cmd.AddCommand(listCmd)
	return cmd
}
