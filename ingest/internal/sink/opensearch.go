package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/factflow-systems/factflow/common/logging"
)

// OpenSearchConfig holds OpenSearch connection settings.
type OpenSearchConfig struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	IndexPrefix   string
}

// OpenSearchWriter stores each table in its own index. Rows with a key
// column use it as document id, so a repeated push overwrites.
type OpenSearchWriter struct {
	client *opensearch.Client
	prefix string
	logger *logging.Logger
}

// NewOpenSearchWriter creates a writer. It does not contact the cluster.
func NewOpenSearchWriter(cfg OpenSearchConfig, logger *logging.Logger) (*OpenSearchWriter, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = "factflow"
	}
	return &OpenSearchWriter{client: client, prefix: prefix, logger: logging.OrDefault(logger)}, nil
}

// IndexName returns the index that holds table.
func (w *OpenSearchWriter) IndexName(table string) string {
	return w.prefix + "-" + strings.ToLower(table)
}

// Ping verifies the cluster is reachable.
func (w *OpenSearchWriter) Ping(ctx context.Context) error {
	res, err := w.client.Info(w.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to opensearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch returned error: %s", res.Status())
	}
	return nil
}

func (w *OpenSearchWriter) PushRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	index := w.IndexName(table)
	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: w.client,
		Index:  index,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var (
		mu     sync.Mutex
		failed int
		errs   []string
	)
	fail := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		failed++
		if len(errs) < 5 {
			errs = append(errs, msg)
		}
	}

	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			fail(fmt.Sprintf("marshal row: %v", err))
			continue
		}

		item := opensearchutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					fail(err.Error())
					return
				}
				fail(fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason))
			},
		}
		if id, ok := row.Key(table); ok {
			item.DocumentID = id
		}

		if err := bi.Add(ctx, item); err != nil {
			fail(fmt.Sprintf("add to bulk indexer: %v", err))
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("bulk indexer close: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rows failed to index into %s: %s", failed, len(rows), index, strings.Join(errs, "; "))
	}

	w.logger.DebugContext(ctx, "indexed rows", logging.Table(table), logging.Count(len(rows)))
	return nil
}

// ClearRows deletes every document of table. A missing index is already clear.
func (w *OpenSearchWriter) ClearRows(ctx context.Context, table string) error {
	index := w.IndexName(table)
	req := opensearchapi.DeleteByQueryRequest{
		Index:   []string{index},
		Body:    strings.NewReader(`{"query":{"match_all":{}}}`),
		Refresh: opensearchapi.BoolPtr(true),
	}

	res, err := req.Do(ctx, w.client)
	if err != nil {
		return fmt.Errorf("delete_by_query %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete_by_query %s: %s - %s", index, res.Status(), string(body))
	}
	return nil
}
