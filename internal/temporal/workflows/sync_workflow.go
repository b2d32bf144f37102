package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clintrovert/taskbridge/internal/activities"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// SyncActivityTimeout bounds a single event synchronization
const SyncActivityTimeout = 10 * time.Minute

// TaskSyncWorkflow synchronizes a tracker event with its repositories
func TaskSyncWorkflow(ctx workflow.Context, event *types.TaskEvent) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting task sync workflow",
		"item_type", event.Type,
		"item_id", event.Data.ID,
		"action", event.Action,
	)

	// Remote calls are retried inside the activity, so the activity itself
	// runs at most once.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: SyncActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result activities.SyncResult
	err := workflow.ExecuteActivity(ctx, activities.SyncEventActivity, event).Get(ctx, &result)
	if err != nil {
		logger.Error("task sync failed", "error", err)
		return "", err
	}

	logger.Info("task sync workflow completed", "summary", result.Summary)
	return result.Summary, nil
}

// WorkflowID derives a stable id from the event so that redelivered
// webhooks for the same change map to one workflow
func WorkflowID(event *types.TaskEvent) string {
	id := fmt.Sprintf("task-sync-%s-%d-%s", event.Type, event.Data.ID, event.Action)
	if status := event.StatusTo(); status != "" {
		id += "-" + strings.ToLower(strings.Join(strings.Fields(status), "-"))
	}
	return id
}
