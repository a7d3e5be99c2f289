package ticketing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	jira "github.com/andygrunwald/go-jira"
	"github.com/rs/zerolog/log"
)

var ErrTicketingFailure = errors.New("ticket creation failed")

const (
	issueTypeBug    = "Bug"
	priorityHighest = "Highest"
	priorityID      = "1"
)

// Client files issues in the tracker.
type Client interface {
	// CreateTicket files req and returns the browse URL of the new issue.
	CreateTicket(ctx context.Context, req model.TicketRequest) (string, error)
}

type jiraClient struct {
	client  *jira.Client
	baseURL string
	project string
}

func NewJiraClient(cfg *config.Config) (Client, error) {
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Email,
		Password: cfg.Jira.APIToken,
	}
	client, err := jira.NewClient(tp.Client(), cfg.Jira.URL)
	if err != nil {
		log.Error().Err(err).Str("url", cfg.Jira.URL).Msg("Failed to create Jira client")
		return nil, fmt.Errorf("create jira client: %w", err)
	}
	return &jiraClient{client: client, baseURL: cfg.Jira.URL, project: cfg.Jira.Project}, nil
}

func (c *jiraClient) CreateTicket(ctx context.Context, req model.TicketRequest) (string, error) {
	priority := req.Priority
	if priority == "" {
		priority = priorityHighest
	}
	issue := &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{ID: c.project},
			Summary:     req.Summary,
			Description: req.Description,
			Type:        jira.IssueType{Name: issueTypeBug},
			Labels:      req.Labels,
			Priority:    &jira.Priority{Name: priority, ID: priorityID},
			Environment: req.Environment,
		},
	}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		detail := ""
		if resp != nil && resp.Body != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			detail = string(body)
		}
		log.Error().Err(err).Str("project", c.project).Str("response", detail).Msg("Jira issue creation failed")
		return "", fmt.Errorf("%w: %v", ErrTicketingFailure, err)
	}
	return fmt.Sprintf("%s/browse/%s", c.baseURL, created.Key), nil
}
