package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/clintrovert/taskbridge/pkg/types"
)

// Syncer runs an event through the synchronization engine
type Syncer interface {
	Sync(ctx context.Context, event *types.TaskEvent) (string, error)
}

// SyncActivities handles event synchronization activities
type SyncActivities struct {
	engine Syncer
}

// NewSyncActivities creates a new sync activities handler
func NewSyncActivities(engine Syncer) *SyncActivities {
	return &SyncActivities{
		engine: engine,
	}
}

// SyncEventActivity processes one tracker event. Invalid events fail with
// a non-retryable error.
func (a *SyncActivities) SyncEventActivity(ctx context.Context, event *types.TaskEvent) (SyncResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("synchronizing event",
		"item_type", event.Type,
		"item_id", event.Data.ID,
		"action", event.Action,
	)

	summary, err := a.engine.Sync(ctx, event)
	if err != nil {
		var validationErr *types.ValidationError
		if errors.As(err, &validationErr) {
			logger.Warn("event rejected", "error", err)
			return SyncResult{Summary: summary, Rejected: true},
				temporal.NewNonRetryableApplicationError(summary, "ValidationError", err)
		}
		logger.Error("failed to synchronize event", "error", err)
		return SyncResult{Summary: summary}, err
	}

	logger.Info("event synchronized", "summary", summary)
	return SyncResult{Summary: summary}, nil
}
