package activities

import (
	"context"
	"errors"

	"github.com/clintrovert/taskbridge/pkg/types"
)

// Activity functions that will be registered with the Temporal worker.
// They delegate to the implementation installed at worker startup.

var syncActivities *SyncActivities

// SetSyncActivities sets the sync activities implementation
func SetSyncActivities(sa *SyncActivities) {
	syncActivities = sa
}

// SyncEventActivity is the activity function for synchronizing an event
func SyncEventActivity(ctx context.Context, event *types.TaskEvent) (SyncResult, error) {
	if syncActivities == nil {
		return SyncResult{}, errors.New("sync activities not initialized")
	}
	return syncActivities.SyncEventActivity(ctx, event)
}
