package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const hubSpotSignatureHeader = "X-HubSpot-Signature"

// IngestClient talks to the factflow ingest service.
type IngestClient struct {
	baseURL       string
	client        *http.Client
	hubSpotSecret string
}

// WebhookResult is the summary the service returns for one delivery.
type WebhookResult struct {
	Processed int `json:"processed"`
	Posted    int `json:"posted"`
}

// SyncResult mirrors the agent sync response.
type SyncResult struct {
	Cleared  bool `json:"cleared"`
	Inserted int  `json:"inserted"`
	Fetched  int  `json:"fetched"`
	DryRun   bool `json:"dryRun"`
}

// Readiness is the body of GET /readyz.
type Readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// DeadLetter is one entry of GET /api/v1/dlq.
type DeadLetter struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
	Envelope  struct {
		Source     string          `json:"source"`
		Body       json.RawMessage `json:"body"`
		ReceivedAt time.Time       `json:"received_at"`
	} `json:"envelope"`
}

// ReplayResult totals one DLQ replay.
type ReplayResult struct {
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
	Processed int `json:"processed"`
	Posted    int `json:"posted"`
}

// APIError is returned for any non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewIngestClient(baseURL string, timeout time.Duration) *IngestClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IngestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithHubSpotSecret signs HubSpot deliveries the way HubSpot v1 does.
func (c *IngestClient) WithHubSpotSecret(secret string) *IngestClient {
	c.hubSpotSecret = secret
	return c
}

// PostWebhook sends a raw webhook body to /webhook/{source}.
func (c *IngestClient) PostWebhook(ctx context.Context, source string, body []byte) (*WebhookResult, error) {
	headers := map[string]string{}
	if strings.EqualFold(source, "hubspot") && c.hubSpotSecret != "" {
		sum := sha256.Sum256(append([]byte(c.hubSpotSecret), body...))
		headers[hubSpotSignatureHeader] = hex.EncodeToString(sum[:])
	}

	var res WebhookResult
	if err := c.do(ctx, http.MethodPost, "/webhook/"+url.PathEscape(strings.ToLower(source)), body, headers, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SyncAgents triggers a DimAgent rebuild from the Aloware ring group.
func (c *IngestClient) SyncAgents(ctx context.Context, dryRun bool) (*SyncResult, error) {
	body, err := json.Marshal(map[string]bool{"dryRun": dryRun})
	if err != nil {
		return nil, err
	}

	var res SyncResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/agents/sync", body, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListDLQ returns up to limit dead-lettered deliveries, oldest first.
func (c *IngestClient) ListDLQ(ctx context.Context, limit int) ([]DeadLetter, error) {
	var out []DeadLetter
	if err := c.do(ctx, http.MethodGet, "/api/v1/dlq?limit="+strconv.Itoa(limit), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDLQ drops one dead-lettered delivery.
func (c *IngestClient) DeleteDLQ(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/dlq/"+url.PathEscape(id), nil, nil, nil)
}

// PurgeDLQ drops every dead-lettered delivery.
func (c *IngestClient) PurgeDLQ(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/dlq", nil, nil, nil)
}

// ReplayDLQ re-ingests up to limit dead-lettered deliveries.
func (c *IngestClient) ReplayDLQ(ctx context.Context, limit int) (*ReplayResult, error) {
	var res ReplayResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/dlq/replay?limit="+strconv.Itoa(limit), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ready fetches /readyz. A not-ready service still yields its check map
// together with an APIError.
func (c *IngestClient) Ready(ctx context.Context) (*Readiness, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ready Readiness
	if err := json.NewDecoder(resp.Body).Decode(&ready); err != nil {
		return nil, fmt.Errorf("decode readiness: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &ready, &APIError{StatusCode: resp.StatusCode, Message: ready.Status}
	}
	return &ready, nil
}

func (c *IngestClient) do(ctx context.Context, method, path string, body []byte, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.OK {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}
