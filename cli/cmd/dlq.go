package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/pkg/output"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and drain the dead letter queue",
	Long: `Dead-lettered deliveries are webhooks whose ingestion failed after they
were accepted. Replay runs them through the pipeline again; the ledger drops
any fact that was already posted.`,
}

var dlqListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List dead-lettered deliveries, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}
		entries, err := c.ListDLQ(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list dlq: %w", err)
		}

		p := printer(cmd)
		if jsonOutput(cmd) {
			return p.JSON(entries)
		}
		if len(entries) == 0 {
			p.Info("Dead letter queue is empty")
			return nil
		}

		table := output.NewTable("ID", "FAILED AT", "SOURCE", "REASON", "ERROR")
		for _, e := range entries {
			table.AddRow(e.ID, e.Timestamp.Format(time.RFC3339), e.Envelope.Source, e.Reason, e.Error)
		}
		table.Render(p.Out)
		return nil
	},
}

var dlqDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Drop one dead-lettered delivery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteDLQ(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete %s: %w", args[0], err)
		}
		printer(cmd).Success("Deleted %s", args[0])
		return nil
	},
}

var dlqPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every dead-lettered delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("purge discards deliveries permanently; pass --yes to confirm")
		}
		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}
		if err := c.PurgeDLQ(cmd.Context()); err != nil {
			return fmt.Errorf("failed to purge dlq: %w", err)
		}
		printer(cmd).Success("Dead letter queue purged")
		return nil
	},
}

var dlqReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-ingest dead-lettered deliveries",
	Example: `  factctl dlq replay
  factctl dlq replay --limit 10 --profile prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}
		res, err := c.ReplayDLQ(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("dlq replay failed: %w", err)
		}

		p := printer(cmd)
		if jsonOutput(cmd) {
			return p.JSON(res)
		}
		table := output.NewTable("REPLAYED", "FAILED", "PROCESSED", "POSTED")
		table.AddRow(strconv.Itoa(res.Replayed), strconv.Itoa(res.Failed), strconv.Itoa(res.Processed), strconv.Itoa(res.Posted))
		table.Render(p.Out)
		if res.Failed > 0 {
			p.Warn("%d deliveries failed again and remain queued", res.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dlqCmd)
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqDeleteCmd)
	dlqCmd.AddCommand(dlqPurgeCmd)
	dlqCmd.AddCommand(dlqReplayCmd)

	dlqListCmd.Flags().Int("limit", 100, "maximum entries to show")
	dlqReplayCmd.Flags().Int("limit", 100, "maximum entries to replay")
	dlqPurgeCmd.Flags().Bool("yes", false, "confirm the purge")
}
