package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clintrovert/taskbridge/internal/github"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// Default tracker status names that trigger repository actions
const (
	DefaultStatusInProgress = "In progress"
	DefaultStatusDone       = "Finalizada"
)

// Classifier derives work items from events. It has no side effects.
type Classifier struct {
	repoPattern      *regexp.Regexp
	statusInProgress string
	statusDone       string
}

// New creates a classifier matching repository URLs under apiURL. Empty
// status names fall back to the defaults.
func New(apiURL, statusInProgress, statusDone string) *Classifier {
	if statusInProgress == "" {
		statusInProgress = DefaultStatusInProgress
	}
	if statusDone == "" {
		statusDone = DefaultStatusDone
	}
	return &Classifier{
		repoPattern:      github.RepoPattern(apiURL),
		statusInProgress: statusInProgress,
		statusDone:       statusDone,
	}
}

// ActionFor maps the event action and status transition to an ActionKind
func (c *Classifier) ActionFor(event *types.TaskEvent) types.ActionKind {
	switch event.Action {
	case types.EventActionCreate:
		return types.ActionCreateIssue
	case types.EventActionChange:
		switch event.StatusTo() {
		case c.statusInProgress:
			return types.ActionUpdateIssue
		case c.statusDone:
			return types.ActionDeleteIssue
		}
	}
	return types.ActionNoOp
}

// Classify returns one work item per repository URL in the description, in
// order of appearance. It fails with *types.ValidationError when the event
// lacks a subject or description, names no repository, or has an
// unsupported item type.
func (c *Classifier) Classify(event *types.TaskEvent) ([]types.RepoWorkItem, error) {
	if event == nil {
		return nil, &types.ValidationError{Reason: "empty event"}
	}
	if strings.TrimSpace(event.Data.Description) == "" {
		return nil, &types.ValidationError{Reason: "description is empty"}
	}
	if strings.TrimSpace(event.Data.Subject) == "" {
		return nil, &types.ValidationError{Reason: "subject is empty"}
	}
	if !event.Type.Valid() {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("unsupported item type %q", event.Type)}
	}

	matches := c.repoPattern.FindAllStringSubmatch(event.Data.Description, -1)
	if len(matches) == 0 {
		return nil, &types.ValidationError{Reason: "description references no repository"}
	}

	action := c.ActionFor(event)
	ref := event.Data.Ref.String()
	branch := types.BranchName(ref, event.Data.Subject)

	items := make([]types.RepoWorkItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, types.RepoWorkItem{
			RepoAPIURL:  m[0],
			Owner:       m[1],
			Repo:        m[2],
			Title:       event.Data.Subject,
			Description: event.Data.Description,
			ItemID:      event.Data.ID,
			ItemType:    event.Type,
			Ref:         ref,
			Branch:      branch,
			Action:      action,
		})
	}

	return items, nil
}
