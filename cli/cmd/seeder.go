package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/internal/client"
	"github.com/factflow-systems/factflow/cli/internal/config"
	"github.com/factflow-systems/factflow/cli/internal/seeder"
)

var (
	seederCfgFile    string
	seederCount      int
	seederDuplicates float64
	seederAgents     int
	seederTimeSpread string
	seederInterval   time.Duration
	seederKinds      string
	seederSeed       int64
)

var seederCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Synthetic webhook commands",
	Long:  "Generate realistic Aloware webhook traffic for testing and development",
}

var seederRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the webhook seeder",
	Long: `Generate Aloware call and text webhooks and post them to /webhook/aloware.
A fraction of deliveries (--duplicates) repeat an earlier body verbatim to
exercise idempotent ingestion.

Configuration cascade (priority order):
  1. Command-line flags
  2. ./seeder.yaml (project directory)
  3. ~/.factctl/seeder.yaml (user directory)
  4. Built-in defaults`,
	Example: `  factctl seeder run
  factctl seeder run --count 1000 --duplicates 0.2
  factctl seeder run --kinds outbound_call,outbound_text --time-spread 30d`,
	RunE: runSeeder,
}

var seederValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate seeder configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := seeder.LoadConfig(seederCfgFile)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		p := printer(cmd)
		p.Success("Configuration is valid")
		d := sc.Defaults
		p.Info("  Ingest URL: %s", d.IngestURL)
		p.Info("  Deliveries: %d", d.Count)
		p.Info("  Redelivery rate: %.2f", d.Duplicates)
		p.Info("  Agents: %d", d.Agents)
		p.Info("  Time spread: %v", d.TimeSpread)
		p.Info("  Event kinds: %v", d.EventKinds)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seederCmd)
	seederCmd.AddCommand(seederRunCmd)
	seederCmd.AddCommand(seederValidateCmd)

	seederCmd.PersistentFlags().StringVar(&seederCfgFile, "seeder-config", "", "seeder config file (default: ./seeder.yaml or ~/.factctl/seeder.yaml)")

	seederRunCmd.Flags().IntVarP(&seederCount, "count", "c", 0, "number of deliveries to post")
	seederRunCmd.Flags().Float64Var(&seederDuplicates, "duplicates", 0, "fraction of deliveries that repeat an earlier one, in [0, 1)")
	seederRunCmd.Flags().IntVar(&seederAgents, "agents", 0, "number of distinct agents")
	seederRunCmd.Flags().StringVarP(&seederTimeSpread, "time-spread", "s", "", "period to spread created_at over (e.g. 24h, 7d)")
	seederRunCmd.Flags().DurationVar(&seederInterval, "interval", 0, "pause between deliveries")
	seederRunCmd.Flags().StringVar(&seederKinds, "kinds", "", "comma-separated event kinds")
	seederRunCmd.Flags().Int64Var(&seederSeed, "seed", 0, "random seed (0 = random)")
}

func runSeeder(cmd *cobra.Command, args []string) error {
	sc, err := seeder.LoadConfig(seederCfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("count") {
		sc.Defaults.Count = seederCount
	}
	if flags.Changed("duplicates") {
		sc.Defaults.Duplicates = seederDuplicates
	}
	if flags.Changed("agents") {
		sc.Defaults.Agents = seederAgents
	}
	if flags.Changed("time-spread") {
		spread, err := parseSpread(seederTimeSpread)
		if err != nil {
			return err
		}
		sc.Defaults.TimeSpread = spread
	}
	if flags.Changed("interval") {
		sc.Defaults.Interval = seederInterval
	}
	if flags.Changed("kinds") {
		sc.Defaults.EventKinds = strings.Split(seederKinds, ",")
	}
	if flags.Changed("seed") {
		sc.Defaults.Seed = seederSeed
	}
	if url, _ := flags.GetString("ingest-url"); url != "" {
		sc.Defaults.IngestURL = url
	}

	if err := sc.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	timeout := config.DefaultTimeout
	if cfg != nil {
		timeout = cfg.Timeout
	}
	runner := seeder.NewRunner(sc, client.NewIngestClient(sc.Defaults.IngestURL, timeout))
	sum, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	p := printer(cmd)
	if jsonOutput(cmd) {
		return p.JSON(sum)
	}
	p.Success("Seeded %d deliveries (%d redelivered, %d failed): processed=%d posted=%d",
		sum.Sent, sum.Redelivered, sum.Failed, sum.Processed, sum.Posted)
	return nil
}

// parseSpread accepts Go durations plus a whole-day suffix such as "7d".
func parseSpread(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time spread %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time spread %q: %w", s, err)
	}
	return d, nil
}
