// Package powerbi writes table rows to a Power BI push dataset.
package powerbi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/sink"
)

const (
	DefaultBaseURL      = "https://api.powerbi.com/v1.0/myorg"
	DefaultAuthorityURL = "https://login.microsoftonline.com"
	Scope               = "https://analysis.windows.net/powerbi/api/.default"

	// MaxRowsPerRequest is the push API limit for a single add-rows call.
	MaxRowsPerRequest = 10000
)

type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	WorkspaceID  string
	DatasetID    string
	BaseURL      string
	AuthorityURL string
	Timeout      time.Duration
}

// Validate reports missing credentials or dataset coordinates.
func (c Config) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"tenant_id", c.TenantID},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"workspace_id", c.WorkspaceID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("powerbi config missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// APIError is a non-2xx response from the Power BI REST API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("power bi %s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

// Writer implements sink.TableWriter against a push dataset.
type Writer struct {
	cfg    Config
	http   *http.Client
	logger *logging.Logger
}

// NewWriter builds a writer whose HTTP client fetches and refreshes tokens
// through the client-credentials grant.
func NewWriter(ctx context.Context, cfg Config, logger *logging.Logger) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthorityURL == "" {
		cfg.AuthorityURL = DefaultAuthorityURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimRight(cfg.AuthorityURL, "/") + "/" + url.PathEscape(cfg.TenantID) + "/oauth2/v2.0/token",
		Scopes:       []string{Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	base := &http.Client{Timeout: cfg.Timeout}
	client := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	client.Timeout = cfg.Timeout

	return &Writer{cfg: cfg, http: client, logger: logging.OrDefault(logger)}, nil
}

func (w *Writer) rowsURL(table string) string {
	return fmt.Sprintf("%s/groups/%s/datasets/%s/tables/%s/rows",
		w.cfg.BaseURL, url.PathEscape(w.cfg.WorkspaceID), url.PathEscape(w.cfg.DatasetID), url.PathEscape(table))
}

// PushRows adds rows to table, splitting into requests of at most
// MaxRowsPerRequest rows. Chunks already sent stay written when a later one fails.
func (w *Writer) PushRows(ctx context.Context, table string, rows []sink.Row) error {
	if w.cfg.DatasetID == "" {
		return errors.New("powerbi dataset_id is not configured")
	}
	for start := 0; start < len(rows); start += MaxRowsPerRequest {
		end := min(start+MaxRowsPerRequest, len(rows))
		body, err := json.Marshal(map[string][]sink.Row{"rows": rows[start:end]})
		if err != nil {
			return fmt.Errorf("marshal rows: %w", err)
		}
		if err := w.do(ctx, http.MethodPost, w.rowsURL(table), body, "addRows", nil); err != nil {
			return err
		}
		w.logger.DebugContext(ctx, "pushed rows to power bi", logging.Table(table), logging.Count(end-start))
	}
	return nil
}

// ClearRows removes every row of table.
func (w *Writer) ClearRows(ctx context.Context, table string) error {
	if w.cfg.DatasetID == "" {
		return errors.New("powerbi dataset_id is not configured")
	}
	return w.do(ctx, http.MethodDelete, w.rowsURL(table), nil, "deleteRows", nil)
}

// Dataset is the created dataset as returned by the API.
type Dataset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateDataset creates a push dataset named name with the tables from Schema.
func (w *Writer) CreateDataset(ctx context.Context, name string) (*Dataset, error) {
	body, err := json.Marshal(map[string]any{
		"name":        name,
		"defaultMode": "Push",
		"tables":      Schema(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal dataset: %w", err)
	}

	u := fmt.Sprintf("%s/groups/%s/datasets?defaultRetentionPolicy=None", w.cfg.BaseURL, url.PathEscape(w.cfg.WorkspaceID))
	var ds Dataset
	if err := w.do(ctx, http.MethodPost, u, body, "createDataset", &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (w *Writer) do(ctx context.Context, method, u string, body []byte, op string, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("power bi %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	return nil
}
