package sink

import (
	"context"
	"log/slog"

	"github.com/factflow-systems/factflow/common/logging"
)

// LogWriter logs rows instead of storing them. Used in development.
type LogWriter struct {
	logger *logging.Logger
}

func NewLogWriter(logger *logging.Logger) *LogWriter {
	return &LogWriter{logger: logging.OrDefault(logger)}
}

func (w *LogWriter) PushRows(ctx context.Context, table string, rows []Row) error {
	w.logger.InfoContext(ctx, "push rows", logging.Table(table), logging.Count(len(rows)))
	for _, r := range rows {
		w.logger.DebugContext(ctx, "row", logging.Table(table), slog.Any("row", map[string]any(r)))
	}
	return nil
}

func (w *LogWriter) ClearRows(ctx context.Context, table string) error {
	w.logger.InfoContext(ctx, "clear rows", logging.Table(table))
	return nil
}
