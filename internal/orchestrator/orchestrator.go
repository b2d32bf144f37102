package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/pkg/types"
)

// Repository is the set of remote operations the orchestrator drives
type Repository interface {
	CreateBranch(ctx context.Context, repoURL, branch string) error
	FindOpenIssue(ctx context.Context, repoURL, title string) (int, bool, error)
	CreateIssue(ctx context.Context, repoURL, title, body string) error
	CloseIssue(ctx context.Context, repoURL string, number int) error
	CommentOnIssue(ctx context.Context, repoURL string, number int, body string) error
}

// Orchestrator executes the repository action of a single work item
type Orchestrator struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a new orchestrator
func New(repo Repository, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		repo:   repo,
		logger: logger,
	}
}

// Process runs the work item's action. Failures are captured in the
// outcome, never returned, so one repository cannot abort the others.
// ok is false for NoOp items, which must be left out of the results.
func (o *Orchestrator) Process(ctx context.Context, item types.RepoWorkItem) (types.RepoOutcome, bool) {
	logger := o.logger.With(
		zap.String("repository", item.FullName()),
		zap.Int64("item_id", item.ItemID),
		zap.Stringer("action", item.Action),
	)

	var outcome types.RepoOutcome
	switch item.Action {
	case types.ActionCreateIssue:
		outcome = o.createIssue(ctx, item)
	case types.ActionDeleteIssue:
		outcome = o.closeIssue(ctx, item)
	case types.ActionUpdateIssue:
		outcome = o.startDevelopment(ctx, item, logger)
	default:
		return types.RepoOutcome{Item: item}, false
	}

	if outcome.Err != nil {
		logger.Warn("work item finished with error",
			zap.Stringer("outcome", outcome.Kind),
			zap.Error(outcome.Err),
		)
	} else {
		logger.Info("work item finished",
			zap.Stringer("outcome", outcome.Kind),
			zap.Int("issue_number", outcome.IssueNumber),
		)
	}

	return outcome, true
}

func (o *Orchestrator) createIssue(ctx context.Context, item types.RepoWorkItem) types.RepoOutcome {
	if err := o.repo.CreateIssue(ctx, item.RepoAPIURL, item.Title, item.Description); err != nil {
		return failed(item, err)
	}
	return types.RepoOutcome{Item: item, Kind: types.OutcomeCreated}
}

func (o *Orchestrator) closeIssue(ctx context.Context, item types.RepoWorkItem) types.RepoOutcome {
	number, found, err := o.repo.FindOpenIssue(ctx, item.RepoAPIURL, item.Title)
	if err != nil {
		return failed(item, err)
	}
	if !found {
		return types.RepoOutcome{Item: item, Kind: types.OutcomeNoMatchingIssue}
	}

	if err := o.repo.CloseIssue(ctx, item.RepoAPIURL, number); err != nil {
		return types.RepoOutcome{Item: item, Kind: types.OutcomeFailed, IssueNumber: number, Err: err}
	}
	return types.RepoOutcome{Item: item, Kind: types.OutcomeClosed, IssueNumber: number}
}

// startDevelopment creates the branch and links it to the item's issue,
// creating the issue when none is open. Once the branch exists, any later
// failure yields OutcomeBranchOnly rather than OutcomeFailed.
func (o *Orchestrator) startDevelopment(ctx context.Context, item types.RepoWorkItem, logger *zap.Logger) types.RepoOutcome {
	if err := o.repo.CreateBranch(ctx, item.RepoAPIURL, item.Branch); err != nil {
		var branchErr *types.BranchExistsError
		if errors.As(err, &branchErr) {
			return types.RepoOutcome{Item: item, Kind: types.OutcomeAlreadyExists, Err: err}
		}
		return failed(item, err)
	}

	number, found, err := o.repo.FindOpenIssue(ctx, item.RepoAPIURL, item.Title)
	if err != nil {
		return branchOnly(item, err)
	}

	if !found {
		logger.Info("no open issue for branch, creating one", zap.String("title", item.Title))

		if err := o.repo.CreateIssue(ctx, item.RepoAPIURL, item.Title, item.Description); err != nil {
			return branchOnly(item, fmt.Errorf("could not create issue: %w", err))
		}

		number, found, err = o.repo.FindOpenIssue(ctx, item.RepoAPIURL, item.Title)
		if err != nil {
			return branchOnly(item, err)
		}
		if !found {
			return branchOnly(item, errors.New("created issue is not listed as open"))
		}
	}

	if err := o.repo.CommentOnIssue(ctx, item.RepoAPIURL, number, AssociationComment(item.Branch)); err != nil {
		return types.RepoOutcome{Item: item, Kind: types.OutcomeBranchOnly, IssueNumber: number, Err: err}
	}

	return types.RepoOutcome{Item: item, Kind: types.OutcomeLinked, IssueNumber: number}
}

// AssociationComment is the issue comment that links a branch to an issue
func AssociationComment(branch string) string {
	return fmt.Sprintf("Branch `%s` has been created for this task and development has started.", branch)
}

func failed(item types.RepoWorkItem, err error) types.RepoOutcome {
	return types.RepoOutcome{Item: item, Kind: types.OutcomeFailed, Err: err}
}

func branchOnly(item types.RepoWorkItem, err error) types.RepoOutcome {
	return types.RepoOutcome{Item: item, Kind: types.OutcomeBranchOnly, Err: err}
}
