package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/metrics"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

const DefaultBasePath = "/var/lib/factflow/dlq"

// Queue writes one JSON file per failed delivery under a directory.
// A nil *Queue discards writes.
type Queue struct {
	basePath string
	written  atomic.Uint64
	logger   *logging.Logger
}

// NewQueue creates basePath if needed.
func NewQueue(basePath string, logger *logging.Logger) (*Queue, error) {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}
	return &Queue{basePath: basePath, logger: logging.OrDefault(logger)}, nil
}

func (q *Queue) fileName(fd FailedDelivery) string {
	return fmt.Sprintf("failed_%d_%s.json", fd.Timestamp.UnixNano(), fd.ID)
}

func (q *Queue) Write(ctx context.Context, env *models.IngestEnvelope, err error, reason string) error {
	if q == nil {
		return nil
	}

	fd := newFailedDelivery(env, err, reason)
	data, mErr := json.MarshalIndent(fd, "", "  ")
	if mErr != nil {
		metrics.DLQWrites.WithLabelValues(reason, "error").Inc()
		return fmt.Errorf("marshal dlq entry: %w", mErr)
	}

	path := filepath.Join(q.basePath, q.fileName(fd))
	if wErr := os.WriteFile(path, data, 0o640); wErr != nil {
		metrics.DLQWrites.WithLabelValues(reason, "error").Inc()
		return fmt.Errorf("write dlq entry: %w", wErr)
	}

	q.written.Add(1)
	metrics.DLQWrites.WithLabelValues(reason, "ok").Inc()
	q.logger.WarnContext(ctx, "dead-lettered delivery", logging.Reason(reason), "dlq_id", fd.ID, "path", path)
	return nil
}

func (q *Queue) files() ([]string, error) {
	entries, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "failed_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// List returns up to limit deliveries, oldest first. Unreadable files are skipped.
func (q *Queue) List(ctx context.Context, limit int) ([]FailedDelivery, error) {
	if q == nil {
		return nil, errors.New("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	names, err := q.files()
	if err != nil {
		return nil, err
	}

	out := make([]FailedDelivery, 0, min(limit, len(names)))
	for _, name := range names {
		if len(out) == limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.basePath, name))
		if err != nil {
			q.logger.WarnContext(ctx, "skipping unreadable dlq file", "file", name, logging.Error(err))
			continue
		}
		var fd FailedDelivery
		if err := json.Unmarshal(data, &fd); err != nil {
			q.logger.WarnContext(ctx, "skipping corrupt dlq file", "file", name, logging.Error(err))
			continue
		}
		out = append(out, fd)
	}
	return out, nil
}

// Delete removes the delivery with the given id.
func (q *Queue) Delete(_ context.Context, id string) error {
	if q == nil {
		return errors.New("dlq not enabled")
	}
	names, err := q.files()
	if err != nil {
		return err
	}
	suffix := "_" + id + ".json"
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			return os.Remove(filepath.Join(q.basePath, name))
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Purge removes every delivery.
func (q *Queue) Purge(_ context.Context) error {
	if q == nil {
		return errors.New("dlq not enabled")
	}
	names, err := q.files()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(q.basePath, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func (q *Queue) Stats() map[string]interface{} {
	if q == nil {
		return map[string]interface{}{"enabled": false, "backend": "file"}
	}
	pending := 0
	if names, err := q.files(); err == nil {
		pending = len(names)
	}
	return map[string]interface{}{
		"enabled":       true,
		"backend":       "file",
		"written":       q.written.Load(),
		"pending_files": pending,
		"base_path":     q.basePath,
	}
}
