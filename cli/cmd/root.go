package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/internal/client"
	"github.com/factflow-systems/factflow/cli/internal/config"
	"github.com/factflow-systems/factflow/cli/pkg/output"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "factctl",
	Short: "factflow CLI",
	Long: `factctl is the command-line interface for the factflow ingest service.

Replay captured webhooks, seed synthetic Aloware traffic, trigger the
DimAgent sync and check service readiness from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.New(os.Stdout, os.Stderr).Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factctl/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().String("ingest-url", "", "ingest service URL (overrides the profile)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// ingestClient resolves the target service from flags and the active profile.
func ingestClient(cmd *cobra.Command) (*client.IngestClient, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	name, _ := cmd.Flags().GetString("profile")
	p, err := cfg.GetProfile(name)
	if err != nil {
		return nil, err
	}

	url := p.IngestURL
	if override, _ := cmd.Flags().GetString("ingest-url"); override != "" {
		url = override
	}
	if url == "" {
		url = config.DefaultIngestURL
	}

	return client.NewIngestClient(url, cfg.Timeout).WithHubSpotSecret(p.HubSpotSecret), nil
}

func printer(cmd *cobra.Command) *output.Printer {
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func jsonOutput(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}
