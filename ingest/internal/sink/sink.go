// Package sink writes fact and dimension rows to an analytics store.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/metrics"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// Table names of the analytics dataset.
const (
	TableFactEvent = "FactEvent"
	TableDimAgent  = "DimAgent"
	TableDimMetric = "DimMetric"
	TableDimDate   = "DimDate"
	TableDimShift  = "DimShift"
)

var keyColumns = map[string]string{
	TableFactEvent: "EventID",
	TableDimAgent:  "AgentID",
	TableDimMetric: "MetricID",
	TableDimDate:   "Date",
}

// KeyColumn returns the column that identifies a row of table, or "" when
// the table has no single-column key.
func KeyColumn(table string) string {
	return keyColumns[table]
}

// Row is one table row keyed by column name.
type Row map[string]any

// Key returns the row's value for the table key column as a string.
func (r Row) Key(table string) (string, bool) {
	col := KeyColumn(table)
	if col == "" {
		return "", false
	}
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// TableWriter pushes rows to and clears rows from named tables.
type TableWriter interface {
	PushRows(ctx context.Context, table string, rows []Row) error
	ClearRows(ctx context.Context, table string) error
}

// FactRow converts a fact to its FactEvent table row.
func FactRow(f models.FactEventRow) Row {
	return Row{
		"EventID":     f.EventID,
		"AgentID":     f.AgentID,
		"FactDateKey": f.FactDateKey,
		"MetricID":    string(f.MetricID),
		"Notes":       f.Notes,
	}
}

// FactSink posts fact rows to the FactEvent table.
type FactSink struct {
	writer TableWriter
	logger *logging.Logger
}

func NewFactSink(writer TableWriter, logger *logging.Logger) *FactSink {
	return &FactSink{writer: writer, logger: logging.OrDefault(logger)}
}

// PostFacts pushes rows and returns how many were written. An empty batch
// is not sent.
func (s *FactSink) PostFacts(ctx context.Context, rows []models.FactEventRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = FactRow(r)
	}
	if err := Push(ctx, s.writer, TableFactEvent, out); err != nil {
		return 0, err
	}
	s.logger.DebugContext(ctx, "posted facts", logging.Table(TableFactEvent), logging.Count(len(out)))
	return len(out), nil
}

// Push writes rows through w and records sink metrics.
func Push(ctx context.Context, w TableWriter, table string, rows []Row) error {
	start := time.Now()
	err := w.PushRows(ctx, table, rows)
	metrics.SinkDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SinkErrors.WithLabelValues(table).Inc()
		return fmt.Errorf("push %d rows to %s: %w", len(rows), table, err)
	}
	metrics.SinkRows.WithLabelValues(table).Add(float64(len(rows)))
	return nil
}
