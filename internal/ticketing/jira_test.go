package ticketing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewJiraClient(&config.Config{Jira: config.JiraConfig{
		URL: srv.URL, Email: "ops@example.com", APIToken: "token", Project: "10001",
	}})
	require.NoError(t, err)
	return c
}

func TestCreateTicket(t *testing.T) {
	var got map[string]map[string]any
	var user, pass string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		assert.Equal(t, "/rest/api/2/issue", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1","key":"OPS-42","self":"x"}`))
	})

	url, err := c.CreateTicket(context.Background(), model.TicketRequest{
		Summary:     "P1 - Error message from 10.0.0.1",
		Description: "*Device* - 10.0.0.1",
		Labels:      []string{"OPS", "NETWORK"},
		Environment: "Backbone Network",
	})
	require.NoError(t, err)
	assert.Contains(t, url, "/browse/OPS-42")
	assert.Equal(t, "ops@example.com", user)
	assert.Equal(t, "token", pass)

	fields := got["fields"]
	require.NotNil(t, fields)
	assert.Equal(t, "P1 - Error message from 10.0.0.1", fields["summary"])
	assert.Equal(t, "Backbone Network", fields["environment"])
	assert.Equal(t, []any{"OPS", "NETWORK"}, fields["labels"])
	assert.Equal(t, "Bug", fields["issuetype"].(map[string]any)["name"])
	assert.Equal(t, "Highest", fields["priority"].(map[string]any)["name"])
}

func TestCreateTicketFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessages":["project is required"]}`))
	})

	_, err := c.CreateTicket(context.Background(), model.TicketRequest{Summary: "x"})
	assert.ErrorIs(t, err, ErrTicketingFailure)
}
