package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factflow-systems/factflow/cli/internal/client"
	"github.com/factflow-systems/factflow/cli/pkg/output"
)

type webhookPoster interface {
	PostWebhook(ctx context.Context, source string, body []byte) (*client.WebhookResult, error)
}

type replaySummary struct {
	Files     int `json:"files"`
	Processed int `json:"processed"`
	Posted    int `json:"posted"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-post captured webhook files",
	Long: `Walks a directory for *.json webhook captures, sorted by path, and posts
each one to /webhook/{source}. Files that are not valid JSON are skipped.
Replays are safe to repeat: events already in the ledger are not posted
again.`,
	Example: `  factctl replay --dir data/aloware-webhooks --limit 25
  factctl replay --dir captures --pattern _aloware --source aloware`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		pattern, _ := cmd.Flags().GetString("pattern")
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")

		files, err := collectReplayFiles(dir, pattern, limit)
		if err != nil {
			return err
		}

		c, err := ingestClient(cmd)
		if err != nil {
			return err
		}

		p := printer(cmd)
		p.Info("Replaying %d files from %s", len(files), dir)
		sum := replayFiles(cmd.Context(), c, source, files, p)

		if jsonOutput(cmd) {
			return p.JSON(sum)
		}
		table := output.NewTable("FILES", "PROCESSED", "POSTED", "SKIPPED", "ERRORS")
		table.AddRow(
			fmt.Sprint(sum.Files),
			fmt.Sprint(sum.Processed),
			fmt.Sprint(sum.Posted),
			fmt.Sprint(sum.Skipped),
			fmt.Sprint(sum.Errors),
		)
		table.Render(p.Out)

		if sum.Errors > 0 {
			return fmt.Errorf("%d of %d files failed", sum.Errors, sum.Files)
		}
		return nil
	},
}

// collectReplayFiles lists *.json files under dir whose path contains
// pattern, sorted, truncated to limit when limit > 0.
func collectReplayFiles(dir, pattern string, limit int) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), ".json") {
			return nil
		}
		if pattern != "" && !strings.Contains(path, pattern) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(files)
	if limit > 0 && limit < len(files) {
		files = files[:limit]
	}
	return files, nil
}

func replayFiles(ctx context.Context, poster webhookPoster, source string, files []string, p *output.Printer) replaySummary {
	sum := replaySummary{Files: len(files)}
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		data, err := os.ReadFile(file)
		if err != nil {
			p.Error("%s: %v", file, err)
			sum.Errors++
			continue
		}
		if !json.Valid(data) {
			p.Warn("skipping non-JSON file: %s", file)
			sum.Skipped++
			continue
		}

		res, err := poster.PostWebhook(ctx, source, data)
		if err != nil {
			p.Error("%s: %v", file, err)
			sum.Errors++
			continue
		}
		sum.Processed += res.Processed
		sum.Posted += res.Posted
	}
	return sum
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("dir", "data/aloware-webhooks", "directory of captured webhook JSON files")
	replayCmd.Flags().String("pattern", "", "only replay files whose path contains this substring")
	replayCmd.Flags().Int("limit", 0, "maximum number of files to replay (0 = all)")
	replayCmd.Flags().String("source", "aloware", "webhook source: aloware or hubspot")
}
