package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlowareClient(t *testing.T) {
	c := NewAlowareClient("https://app.aloware.com/", "tok", 5*time.Second)
	assert.Equal(t, "https://app.aloware.com", c.baseURL)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestAlowareClient_Members(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, availabilityPath, r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_token"))
		assert.Equal(t, "8465", r.URL.Query().Get("ring_group_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"testResults":[
			{"id": 11, "name": "Agent One", "email": "one@example.com"},
			{"id": "12", "name": "Agent Two"},
			{"name": "no id"}
		]}`))
	}))
	defer server.Close()

	c := NewAlowareClient(server.URL, "secret", 5*time.Second)

	members, err := c.Members(context.Background(), "8465")
	require.NoError(t, err)
	assert.Equal(t, []Member{
		{ID: "11", Name: "Agent One", Email: "one@example.com"},
		{ID: "12", Name: "Agent Two"},
	}, members)

	set, err := c.FetchRoster(context.Background(), "8465")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "11")
	assert.Contains(t, set, "12")
}

func TestAlowareClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ring_group_id") {
		case "denied":
			http.Error(w, "invalid token", http.StatusUnauthorized)
		case "garbled":
			w.Write([]byte(`{"testResults": [`))
		}
	}))
	defer server.Close()

	tests := []struct {
		name    string
		client  *AlowareClient
		groupID string
		errText string
	}{
		{"missing token", NewAlowareClient(server.URL, "", time.Second), "1", "api token"},
		{"missing group", NewAlowareClient(server.URL, "t", time.Second), "", "ring group id"},
		{"unauthorized", NewAlowareClient(server.URL, "t", time.Second), "denied", "401"},
		{"bad json", NewAlowareClient(server.URL, "t", time.Second), "garbled", "decode"},
		{"unreachable", NewAlowareClient("http://127.0.0.1:1", "t", time.Second), "1", "send request"},
		{"nil client", nil, "1", "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.FetchRoster(context.Background(), tt.groupID)
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}
