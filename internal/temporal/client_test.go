package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.uber.org/zap/zaptest"

	"github.com/clintrovert/taskbridge/pkg/types"
)

func testEvent() *types.TaskEvent {
	return &types.TaskEvent{
		Type:   types.ItemTypeTask,
		Action: types.EventActionChange,
		Data:   types.TaskData{ID: 4521, Subject: "Add login page"},
		Change: &types.TaskChange{Diff: types.TaskDiff{Status: &types.StatusTransition{To: "Finalizada"}}},
	}
}

func TestStartSyncWorkflow(t *testing.T) {
	temporalClient := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("task-sync-task-4521-change-finalizada")
	run.On("GetRunID").Return("run-1")

	temporalClient.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return opts.ID == "task-sync-task-4521-change-finalizada" && opts.TaskQueue == "sync-queue"
		}),
		mock.Anything, mock.Anything,
	).Return(run, nil).Once()

	c := newClient(temporalClient, "sync-queue", zaptest.NewLogger(t))
	id, err := c.StartSyncWorkflow(context.Background(), testEvent())

	require.NoError(t, err)
	assert.Equal(t, "task-sync-task-4521-change-finalizada", id)
	temporalClient.AssertExpectations(t)
}

func TestStartSyncWorkflowError(t *testing.T) {
	temporalClient := &mocks.Client{}
	temporalClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("namespace not found")).Once()

	c := newClient(temporalClient, "sync-queue", zaptest.NewLogger(t))
	_, err := c.StartSyncWorkflow(context.Background(), testEvent())

	assert.ErrorContains(t, err, "failed to start workflow")
}
