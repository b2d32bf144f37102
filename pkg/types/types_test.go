package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchName(t *testing.T) {
	tests := []struct {
		ref   string
		title string
		want  string
	}{
		{"42", "Add login page", "42-Addloginpage"},
		{"7", "  spaced\tout\ntitle ", "7-spacedouttitle"},
		{"", "x", "-x"},
		{"1 0", "Ñandú feature", "10-Ñandúfeature"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := BranchName(tt.ref, tt.title)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, BranchName(tt.ref, tt.title))
		})
	}
}

func TestTaskEventDecode(t *testing.T) {
	payload := `{
		"type": "task",
		"action": "change",
		"data": {"id": 991, "ref": 17, "subject": "Fix it", "description": "see https://api.github.com/repos/acme/api"},
		"change": {"diff": {"status": {"from": "New", "to": "In progress"}}}
	}`

	var event TaskEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	assert.Equal(t, ItemTypeTask, event.Type)
	assert.Equal(t, int64(991), event.Data.ID)
	assert.Equal(t, "17", event.Data.Ref.String())
	assert.Equal(t, "In progress", event.StatusTo())
}

func TestRefDecodeVariants(t *testing.T) {
	var r Ref
	require.NoError(t, json.Unmarshal([]byte(`"US-12"`), &r))
	assert.Equal(t, Ref("US-12"), r)

	require.NoError(t, json.Unmarshal([]byte(`null`), &r))
	assert.Equal(t, Ref(""), r)

	assert.Error(t, json.Unmarshal([]byte(`{}`), &r))
}

func TestStatusToWithoutChange(t *testing.T) {
	event := TaskEvent{Action: EventActionChange}
	assert.Equal(t, "", event.StatusTo())
}

func TestRemoteErrorClassification(t *testing.T) {
	for _, status := range []int{401, 403, 404} {
		err := fmt.Errorf("wrapped: %w", &RemoteError{Op: "op", StatusCode: status, Err: errors.New("x")})
		assert.True(t, errors.Is(err, ErrPermanentRemote), "status %d", status)
		assert.False(t, errors.Is(err, ErrTransientRemote), "status %d", status)
		assert.Equal(t, status, StatusCode(err))
	}
	for _, status := range []int{0, 409, 422, 429, 500, 502} {
		err := &RemoteError{Op: "op", StatusCode: status, Err: errors.New("x")}
		assert.True(t, errors.Is(err, ErrTransientRemote), "status %d", status)
	}
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestOutcomeFlags(t *testing.T) {
	assert.True(t, RepoOutcome{Kind: OutcomeLinked}.Succeeded())
	assert.True(t, RepoOutcome{Kind: OutcomeClosed}.Succeeded())
	assert.False(t, RepoOutcome{Kind: OutcomeBranchOnly}.Succeeded())
	assert.True(t, RepoOutcome{Kind: OutcomeBranchOnly}.Partial())
	assert.False(t, RepoOutcome{Kind: OutcomeFailed}.Partial())
}
