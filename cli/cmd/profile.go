package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/internal/config"
	"github.com/factflow-systems/factflow/cli/pkg/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage ingest service profiles",
}

var profileSetCmd = &cobra.Command{
	Use:     "set [name]",
	Short:   "Create or update a profile and make it current",
	Example: `  factctl profile set prod --url https://factflow.example.com --hubspot-secret $HUBSPOT_SECRET`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		secret, _ := cmd.Flags().GetString("hubspot-secret")
		if url == "" {
			url = config.DefaultIngestURL
		}

		if err := cfg.SaveProfile(args[0], url, secret); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		printer(cmd).Success("Profile '%s' saved and selected", args[0])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		p := printer(cmd)
		if len(names) == 0 {
			p.Info("No profiles configured; using %s", config.DefaultIngestURL)
			return nil
		}

		table := output.NewTable("", "NAME", "INGEST URL")
		for _, name := range names {
			marker := ""
			if name == cfg.CurrentProfile {
				marker = "*"
			}
			table.AddRow(marker, name, cfg.Profiles[name].IngestURL)
		}
		table.Render(p.Out)
		return nil
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveProfile(args[0]); err != nil {
			return err
		}
		printer(cmd).Success("Profile '%s' removed", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileRemoveCmd)

	profileSetCmd.Flags().String("url", "", "ingest service URL")
	profileSetCmd.Flags().String("hubspot-secret", "", "HubSpot client secret used to sign replayed HubSpot webhooks")
}
