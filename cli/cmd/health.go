package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/pkg/output"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show ingest service readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}

		ready, err := c.Ready(cmd.Context())
		if ready == nil {
			return fmt.Errorf("readiness check failed: %w", err)
		}

		p := printer(cmd)
		if jsonOutput(cmd) {
			if jerr := p.JSON(ready); jerr != nil {
				return jerr
			}
			return err
		}

		names := make([]string, 0, len(ready.Checks))
		for name := range ready.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		table := output.NewTable("CHECK", "STATUS")
		for _, name := range names {
			table.AddRow(name, ready.Checks[name])
		}
		table.Render(p.Out)

		if err != nil {
			return fmt.Errorf("service is %s", ready.Status)
		}
		p.Success("Service is %s", ready.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
