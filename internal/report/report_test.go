package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/clintrovert/taskbridge/pkg/types"
)

type fakeTracker struct {
	calls    int
	itemType types.ItemType
	itemID   int64
	comment  string
	err      error
}

func (f *fakeTracker) UpdateItem(_ context.Context, itemType types.ItemType, itemID int64, comment string) error {
	f.calls++
	f.itemType = itemType
	f.itemID = itemID
	f.comment = comment
	return f.err
}

func outcome(repo string, action types.ActionKind, kind types.OutcomeKind) types.RepoOutcome {
	return types.RepoOutcome{
		Item: types.RepoWorkItem{
			RepoAPIURL: "https://api.github.com/repos/acme/" + repo,
			Owner:      "acme",
			Repo:       repo,
			Title:      "Checkout flow",
			ItemID:     301,
			ItemType:   types.ItemTypeUserStory,
			Ref:        "88",
			Branch:     "88-Checkoutflow",
			Action:     action,
		},
		Kind: kind,
	}
}

func fixedAggregator(t *testing.T, tracker Tracker, logger *zap.Logger) *Aggregator {
	t.Helper()
	loc, err := LoadLocation("")
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2024, 3, 5, 19, 7, 0, 0, time.UTC) }
	return New(tracker, loc, logger, WithClock(now))
}

func TestBuildFormatsBlocks(t *testing.T) {
	a := fixedAggregator(t, &fakeTracker{}, zap.NewNop())

	linked := outcome("web", types.ActionUpdateIssue, types.OutcomeLinked)
	linked.IssueNumber = 12
	exists := outcome("api", types.ActionUpdateIssue, types.OutcomeAlreadyExists)

	got := a.Build([]types.RepoOutcome{linked, exists})

	want := "🚀 **Development started in linked repositories**\n\n" +
		"✅ **acme/web**\n   - URL: https://github.com/acme/web.git\n   - Branch: 88-Checkoutflow\n" +
		"   - Status: Branch 88-Checkoutflow created and linked to issue #12\n\n" +
		"📁 **acme/api**\n   - URL: https://github.com/acme/api.git\n   - Branch: 88-Checkoutflow\n" +
		"   - Status: Branch 88-Checkoutflow already exists in the repository\n\n" +
		"⏰ 05/03/2024 : 2:07 pm (America/Bogota)"
	assert.Equal(t, want, got)
}

func TestHeaderByAction(t *testing.T) {
	assert.Contains(t, Header(types.ActionCreateIssue), "created")
	assert.Contains(t, Header(types.ActionDeleteIssue), "closed")
	assert.Contains(t, Header(types.ActionUpdateIssue), "Development started")
}

func TestIcon(t *testing.T) {
	tests := []struct {
		kind types.OutcomeKind
		want string
	}{
		{types.OutcomeLinked, IconSuccess},
		{types.OutcomeCreated, IconSuccess},
		{types.OutcomeClosed, IconSuccess},
		{types.OutcomeBranchOnly, IconPartial},
		{types.OutcomeFailed, IconFailed},
		{types.OutcomeAlreadyExists, IconInfo},
		{types.OutcomeNoMatchingIssue, IconInfo},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Icon(outcome("web", types.ActionUpdateIssue, tt.kind)))
		})
	}
}

func TestDescribeFailureIncludesStatus(t *testing.T) {
	o := outcome("web", types.ActionUpdateIssue, types.OutcomeFailed)
	o.Err = &types.RemoteError{Op: "get commit", StatusCode: 404}
	assert.Equal(t, "Error HTTP 404: could not create branch 88-Checkoutflow", Describe(o))

	o.Err = errors.New("connection reset")
	assert.Equal(t, "Error: could not create branch 88-Checkoutflow: connection reset", Describe(o))

	closing := outcome("web", types.ActionDeleteIssue, types.OutcomeFailed)
	closing.Err = &types.RemoteError{Op: "close issue", StatusCode: 502}
	assert.Equal(t, "Error HTTP 502: could not close issue", Describe(closing))
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", MaxCommentLength)
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("é", MaxCommentLength+50)
	got := Truncate(long)
	require.True(t, strings.HasSuffix(got, TruncationMarker))

	body := strings.TrimSuffix(got, TruncationMarker)
	assert.Equal(t, MaxCommentLength, utf8.RuneCountInString(body))
	assert.True(t, utf8.ValidString(got))
}

func TestPublishSendsOneComment(t *testing.T) {
	tracker := &fakeTracker{}
	a := fixedAggregator(t, tracker, zap.NewNop())

	outcomes := make([]types.RepoOutcome, 0, 60)
	for i := 0; i < 60; i++ {
		outcomes = append(outcomes, outcome(strings.Repeat("r", 20), types.ActionUpdateIssue, types.OutcomeBranchOnly))
	}

	a.Publish(context.Background(), outcomes)

	assert.Equal(t, 1, tracker.calls)
	assert.Equal(t, types.ItemTypeUserStory, tracker.itemType)
	assert.Equal(t, int64(301), tracker.itemID)
	assert.True(t, strings.HasSuffix(tracker.comment, TruncationMarker))
	assert.LessOrEqual(t, utf8.RuneCountInString(tracker.comment), MaxCommentLength+utf8.RuneCountInString(TruncationMarker))
}

func TestPublishSkipsEmpty(t *testing.T) {
	tracker := &fakeTracker{}
	fixedAggregator(t, tracker, zap.NewNop()).Publish(context.Background(), nil)
	assert.Zero(t, tracker.calls)
}

func TestPublishLogsForbidden(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracker := &fakeTracker{err: &types.RemoteError{Op: "update item", StatusCode: 403}}
	a := fixedAggregator(t, tracker, zap.New(core))

	a.Publish(context.Background(), []types.RepoOutcome{outcome("web", types.ActionCreateIssue, types.OutcomeCreated)})

	failures := logs.FilterMessage("failed to update tracker item").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.Equal(t, int64(301), fields["item_id"])
	assert.Equal(t, "userstory", fields["item_type"])
	assert.Equal(t, int64(403), fields["status_code"])
	assert.Equal(t, 1, logs.FilterMessageSnippet("verify that the token").Len())
}
