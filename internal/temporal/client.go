package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/internal/temporal/workflows"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// Client wraps Temporal client functionality
type Client struct {
	temporalClient client.Client
	logger         *zap.Logger
	taskQueue      string
}

// NewClient creates a new Temporal client
func NewClient(address, namespace, taskQueue string, logger *zap.Logger) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	return newClient(c, taskQueue, logger), nil
}

func newClient(c client.Client, taskQueue string, logger *zap.Logger) *Client {
	return &Client{
		temporalClient: c,
		logger:         logger,
		taskQueue:      taskQueue,
	}
}

// StartSyncWorkflow starts a sync workflow for the event. A delivery of an
// event whose workflow is still running attaches to the existing run.
func (c *Client) StartSyncWorkflow(ctx context.Context, event *types.TaskEvent) (string, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(event),
		TaskQueue: c.taskQueue,
	}

	we, err := c.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.TaskSyncWorkflow, event)
	if err != nil {
		return "", fmt.Errorf("failed to start workflow: %w", err)
	}

	c.logger.Info("started workflow",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()),
		zap.Int64("item_id", event.Data.ID),
	)

	return we.GetID(), nil
}

// Close closes the Temporal client
func (c *Client) Close() {
	c.temporalClient.Close()
}
