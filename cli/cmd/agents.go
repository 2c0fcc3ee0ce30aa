package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/pkg/output"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Agent dimension commands",
}

var agentsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild DimAgent from the Aloware ring group",
	Long: `Clears the DimAgent table and re-inserts one row per member of the
configured Aloware ring group. With --dry-run only the member count is
fetched and nothing is written.`,
	Example: `  factctl agents sync --dry-run
  factctl agents sync --profile prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}

		res, err := c.SyncAgents(cmd.Context(), dryRun)
		if err != nil {
			return fmt.Errorf("agent sync failed: %w", err)
		}

		p := printer(cmd)
		if jsonOutput(cmd) {
			return p.JSON(res)
		}

		if res.DryRun {
			p.Info("Dry run: %d members would be synced", res.Fetched)
			return nil
		}

		table := output.NewTable("CLEARED", "INSERTED")
		table.AddRow(strconv.FormatBool(res.Cleared), strconv.Itoa(res.Inserted))
		table.Render(p.Out)
		p.Success("DimAgent synced")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsSyncCmd)

	agentsSyncCmd.Flags().Bool("dry-run", false, "fetch members without writing")
}
