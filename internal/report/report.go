package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/pkg/types"
)

const (
	// MaxCommentLength is the rune cap applied before the truncation marker
	MaxCommentLength = 2000
	// TruncationMarker is appended to comments cut at MaxCommentLength
	TruncationMarker = "\n\n... (comment truncated)"
	// DefaultTimezone is used for the comment footer
	DefaultTimezone = "America/Bogota"

	timestampLayout = "02/01/2006 : 3:04 pm"
)

// Icons by outcome classification
const (
	IconSuccess = "✅"
	IconPartial = "⚠️"
	IconFailed  = "❌"
	IconInfo    = "📁"
)

// Tracker receives the consolidated comment for the originating item
type Tracker interface {
	UpdateItem(ctx context.Context, itemType types.ItemType, itemID int64, comment string) error
}

// Aggregator builds and publishes consolidated comments
type Aggregator struct {
	tracker  Tracker
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source used for the footer
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates an aggregator. A nil location falls back to UTC.
func New(tracker Tracker, location *time.Location, logger *zap.Logger, opts ...Option) *Aggregator {
	if location == nil {
		location = time.UTC
	}
	a := &Aggregator{
		tracker:  tracker,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadLocation resolves a timezone name, defaulting to DefaultTimezone
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Publish sends one comment for the outcomes to the item they share.
// Tracker failures are logged and never returned.
func (a *Aggregator) Publish(ctx context.Context, outcomes []types.RepoOutcome) {
	if len(outcomes) == 0 {
		return
	}

	item := outcomes[0].Item
	comment := Truncate(a.Build(outcomes))

	logger := a.logger.With(
		zap.Int64("item_id", item.ItemID),
		zap.String("item_type", string(item.ItemType)),
	)
	logger.Debug("publishing tracker comment",
		zap.Int("repositories", len(outcomes)),
		zap.Int("comment_length", utf8.RuneCountInString(comment)),
	)

	if err := a.tracker.UpdateItem(ctx, item.ItemType, item.ItemID, comment); err != nil {
		status := types.StatusCode(err)
		logger.Error("failed to update tracker item",
			zap.Int("status_code", status),
			zap.Error(err),
		)
		if status == http.StatusForbidden {
			logger.Error("tracker denied the update, verify that the token has not expired and the user can edit the project")
		}
		return
	}

	logger.Info("tracker item updated", zap.Int("repositories", len(outcomes)))
}

// Build renders the untruncated comment for the outcomes
func (a *Aggregator) Build(outcomes []types.RepoOutcome) string {
	blocks := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		blocks = append(blocks, Block(o))
	}

	action := types.ActionNoOp
	if len(outcomes) > 0 {
		action = outcomes[0].Item.Action
	}

	return fmt.Sprintf("%s\n\n%s\n\n⏰ %s (%s)",
		Header(action),
		strings.Join(blocks, "\n\n"),
		a.now().In(a.location).Format(timestampLayout),
		a.location.String(),
	)
}

// Header returns the comment heading for an action
func Header(action types.ActionKind) string {
	switch action {
	case types.ActionCreateIssue:
		return "📝 **Issues created in linked repositories**"
	case types.ActionDeleteIssue:
		return "🏁 **Issues closed in linked repositories**"
	default:
		return "🚀 **Development started in linked repositories**"
	}
}

// Block renders one repository's section of the comment
func Block(o types.RepoOutcome) string {
	return fmt.Sprintf("%s **%s**\n   - URL: %s\n   - Branch: %s\n   - Status: %s",
		Icon(o), o.Item.FullName(), o.Item.CloneURL(), o.Item.Branch, Describe(o))
}

// Icon classifies an outcome as success, partial, failed or informational
func Icon(o types.RepoOutcome) string {
	switch {
	case o.Succeeded():
		return IconSuccess
	case o.Partial():
		return IconPartial
	case o.Kind == types.OutcomeFailed:
		return IconFailed
	default:
		return IconInfo
	}
}

// Describe returns the human readable status of an outcome
func Describe(o types.RepoOutcome) string {
	branch := o.Item.Branch
	switch o.Kind {
	case types.OutcomeLinked:
		return fmt.Sprintf("Branch %s created and linked to issue #%d", branch, o.IssueNumber)
	case types.OutcomeCreated:
		return fmt.Sprintf("Issue %q created", o.Item.Title)
	case types.OutcomeClosed:
		return fmt.Sprintf("Issue #%d closed", o.IssueNumber)
	case types.OutcomeBranchOnly:
		if o.Err != nil {
			return fmt.Sprintf("Branch %s created, but no issue could be created or linked: %v", branch, o.Err)
		}
		return fmt.Sprintf("Branch %s created, but no issue could be created or linked", branch)
	case types.OutcomeAlreadyExists:
		return fmt.Sprintf("Branch %s already exists in the repository", branch)
	case types.OutcomeNoMatchingIssue:
		return fmt.Sprintf("No matching issue found with title %q", o.Item.Title)
	default:
		return describeFailure(o)
	}
}

func describeFailure(o types.RepoOutcome) string {
	var what string
	switch o.Item.Action {
	case types.ActionCreateIssue:
		what = "could not create issue"
	case types.ActionDeleteIssue:
		what = "could not close issue"
	default:
		what = fmt.Sprintf("could not create branch %s", o.Item.Branch)
	}

	if status := types.StatusCode(o.Err); status > 0 {
		return fmt.Sprintf("Error HTTP %d: %s", status, what)
	}
	if o.Err != nil {
		return fmt.Sprintf("Error: %s: %v", what, o.Err)
	}
	return "Error: " + what
}

// Truncate caps comment at MaxCommentLength runes and appends
// TruncationMarker when anything was cut.
func Truncate(comment string) string {
	if utf8.RuneCountInString(comment) <= MaxCommentLength {
		return comment
	}
	runes := []rune(comment)
	return string(runes[:MaxCommentLength]) + TruncationMarker
}
