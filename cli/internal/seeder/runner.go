package seeder

import (
	"context"
	"log"
	"time"

	"github.com/factflow-systems/factflow/cli/internal/client"
)

// Poster delivers one webhook body.
type Poster interface {
	PostWebhook(ctx context.Context, source string, body []byte) (*client.WebhookResult, error)
}

// Summary totals one seeding run.
type Summary struct {
	Sent        int `json:"sent"`
	Redelivered int `json:"redelivered"`
	Failed      int `json:"failed"`
	Processed   int `json:"processed"`
	Posted      int `json:"posted"`
}

// Runner handles the event seeding execution
type Runner struct {
	Config    *Config
	Poster    Poster
	Generator *Generator
	Logger    *log.Logger
}

// NewRunner creates a new seeder runner
func NewRunner(config *Config, poster Poster) *Runner {
	return &Runner{
		Config:    config,
		Poster:    poster,
		Generator: NewGenerator(config.Defaults),
		Logger:    log.Default(),
	}
}

// Run posts Count deliveries and stops early if ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	d := r.Config.Defaults

	r.Logger.Printf("Starting webhook seeder:")
	r.Logger.Printf("  Ingest URL: %s", d.IngestURL)
	r.Logger.Printf("  Deliveries: %d", d.Count)
	r.Logger.Printf("  Redelivery rate: %.0f%%", d.Duplicates*100)
	r.Logger.Printf("  Agents: %d", d.Agents)
	r.Logger.Printf("  Time spread: %v", d.TimeSpread)
	r.Logger.Printf("  Event kinds: %v", d.EventKinds)

	var sum Summary
	progressEvery := d.Count / 10
	if progressEvery < 100 {
		progressEvery = 100
	}

	for i := 0; i < d.Count; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		delivery := r.Generator.Next(i)
		if delivery.Redelivery {
			sum.Redelivered++
		}

		res, err := r.Poster.PostWebhook(ctx, "aloware", delivery.Body)
		if err != nil {
			r.Logger.Printf("Failed to post delivery %s: %v", delivery.ID, err)
			sum.Failed++
		} else {
			sum.Sent++
			sum.Processed += res.Processed
			sum.Posted += res.Posted
		}

		if (i+1)%progressEvery == 0 {
			r.Logger.Printf("Progress: %d/%d deliveries (%.1f%%)", i+1, d.Count, float64(i+1)*100/float64(d.Count))
		}

		if d.Interval > 0 && i < d.Count-1 {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-time.After(d.Interval):
			}
		}
	}

	r.Logger.Printf("Seeding complete: sent=%d redelivered=%d failed=%d processed=%d posted=%d",
		sum.Sent, sum.Redelivered, sum.Failed, sum.Processed, sum.Posted)
	return sum, nil
}
