package roster

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
)

const availabilityPath = "/api/v1/webhook/ring-group-availability"

// Member is one agent in an Aloware ring group.
type Member struct {
	ID    string
	Name  string
	Email string
}

// AlowareClient reads ring-group membership from the Aloware API.
type AlowareClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewAlowareClient creates a client for baseURL (e.g. https://app.aloware.com).
func NewAlowareClient(baseURL, apiToken string, timeout time.Duration) *AlowareClient {
	return &AlowareClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// flexID decodes ids sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type availabilityResponse struct {
	TestResults []struct {
		ID    flexID `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"testResults"`
}

// Members lists the agents of a ring group.
func (c *AlowareClient) Members(ctx context.Context, groupID string) ([]Member, error) {
	if c == nil {
		return nil, &FetchError{GroupID: groupID, Err: errors.New("aloware client not configured")}
	}
	if c.apiToken == "" {
		return nil, &FetchError{GroupID: groupID, Err: errors.New("aloware api token is not set")}
	}
	if groupID == "" {
		return nil, &FetchError{GroupID: groupID, Err: errors.New("ring group id is not set")}
	}

	q := url.Values{}
	q.Set("api_token", c.apiToken)
	q.Set("ring_group_id", groupID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+availabilityPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{GroupID: groupID, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{GroupID: groupID, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{GroupID: groupID, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var result availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &FetchError{GroupID: groupID, Err: fmt.Errorf("decode response: %w", err)}
	}

	members := make([]Member, 0, len(result.TestResults))
	for _, u := range result.TestResults {
		if u.ID == "" {
			continue
		}
		members = append(members, Member{ID: string(u.ID), Name: u.Name, Email: u.Email})
	}
	return members, nil
}

// FetchRoster returns the ids of a ring group's members.
func (c *AlowareClient) FetchRoster(ctx context.Context, groupID string) (map[string]struct{}, error) {
	members, err := c.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m.ID] = struct{}{}
	}
	return set, nil
}
