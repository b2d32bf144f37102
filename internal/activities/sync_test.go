package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/clintrovert/taskbridge/pkg/types"
)

type fakeEngine struct {
	summary string
	err     error
	events  []*types.TaskEvent
}

func (f *fakeEngine) Sync(_ context.Context, event *types.TaskEvent) (string, error) {
	f.events = append(f.events, event)
	return f.summary, f.err
}

func newEvent() *types.TaskEvent {
	return &types.TaskEvent{
		Type:   types.ItemTypeUserStory,
		Action: types.EventActionCreate,
		Data: types.TaskData{
			ID:          77,
			Subject:     "Export CSV",
			Description: "https://api.github.com/repos/acme/reports",
		},
	}
}

func TestSyncEventActivity(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()

	engine := &fakeEngine{summary: "Processed 1 repositories:\n[acme/reports] Issue \"Export CSV\" created"}
	a := NewSyncActivities(engine)
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.SyncEventActivity, newEvent())
	require.NoError(t, err)

	var result SyncResult
	require.NoError(t, val.Get(&result))
	assert.Equal(t, engine.summary, result.Summary)
	assert.False(t, result.Rejected)
	require.Len(t, engine.events, 1)
	assert.Equal(t, int64(77), engine.events[0].Data.ID)
}

func TestSyncEventActivityRejectsInvalidEvent(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()

	engine := &fakeEngine{
		summary: "Event rejected: invalid task event: description is empty",
		err:     &types.ValidationError{Reason: "description is empty"},
	}
	a := NewSyncActivities(engine)
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.SyncEventActivity, newEvent())
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "ValidationError", appErr.Type())
}

func TestSyncEventActivityNotInitialized(t *testing.T) {
	SetSyncActivities(nil)
	_, err := SyncEventActivity(context.Background(), newEvent())
	assert.Error(t, err)
}
