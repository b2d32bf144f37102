package jira

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/internal/retry"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// Client reports synchronization results to Jira issues
type Client struct {
	client *jira.Client
	retry  *retry.Executor
	logger *zap.Logger
}

// NewClient creates a new Jira client
func NewClient(baseURL, username, apiToken string, executor *retry.Executor, logger *zap.Logger) (*Client, error) {
	if baseURL == "" || username == "" || apiToken == "" {
		return nil, errors.New("jira credentials are not configured")
	}

	tp := jira.BasicAuthTransport{
		Username: username,
		Password: apiToken,
	}

	client, err := jira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{
		client: client,
		retry:  executor,
		logger: logger,
	}, nil
}

// UpdateItem adds comment to the Jira issue with the given numeric id.
// Jira has no optimistic version on comments, so no read precedes it.
func (c *Client) UpdateItem(ctx context.Context, itemType types.ItemType, itemID int64, comment string) error {
	issueID := strconv.FormatInt(itemID, 10)

	err := retry.Run(ctx, c.retry, "jira_add_comment", func(ctx context.Context) error {
		_, resp, err := c.client.Issue.AddCommentWithContext(ctx, issueID, &jira.Comment{
			Body: comment,
		})
		if err != nil {
			status := 0
			if resp != nil && resp.Response != nil {
				status = resp.StatusCode
			}
			return &types.RemoteError{Op: "add comment", StatusCode: status, Err: err}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add comment to jira issue %s: %w", issueID, err)
	}

	c.logger.Info("updated tracker item",
		zap.String("tracker", "jira"),
		zap.String("item_type", string(itemType)),
		zap.String("issue_id", issueID),
	)

	return nil
}
