package types

import (
	"strings"
	"unicode"
)

// ActionKind is the repository action derived from a tracker event
type ActionKind int

const (
	ActionNoOp ActionKind = iota
	ActionCreateIssue
	ActionUpdateIssue
	ActionDeleteIssue
)

func (a ActionKind) String() string {
	switch a {
	case ActionCreateIssue:
		return "create_issue"
	case ActionUpdateIssue:
		return "update_issue"
	case ActionDeleteIssue:
		return "delete_issue"
	default:
		return "noop"
	}
}

// MarshalText lets work items render the action by name in YAML and JSON
func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// RepoWorkItem is one repository's unit of synchronization for an event
type RepoWorkItem struct {
	RepoAPIURL  string     `json:"repo_api_url" yaml:"repo_api_url"`
	Owner       string     `json:"owner" yaml:"owner"`
	Repo        string     `json:"repo" yaml:"repo"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	ItemID      int64      `json:"item_id" yaml:"item_id"`
	ItemType    ItemType   `json:"item_type" yaml:"item_type"`
	Ref         string     `json:"ref" yaml:"ref"`
	Branch      string     `json:"branch" yaml:"branch"`
	Action      ActionKind `json:"action" yaml:"action"`
}

// FullName returns "owner/repo"
func (w RepoWorkItem) FullName() string {
	return w.Owner + "/" + w.Repo
}

// CloneURL returns the HTTPS clone URL of the repository
func (w RepoWorkItem) CloneURL() string {
	return "https://github.com/" + w.FullName() + ".git"
}

// BranchName builds the branch name for a tracker item. All whitespace is
// removed so the name is a valid ref and stable across calls.
func BranchName(ref, title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, ref+"-"+title)
}

// OutcomeKind classifies the result of processing one work item
type OutcomeKind int

const (
	// OutcomeLinked: branch created and associated with an issue
	OutcomeLinked OutcomeKind = iota
	// OutcomeCreated: issue created
	OutcomeCreated
	// OutcomeClosed: matching issue closed
	OutcomeClosed
	// OutcomeBranchOnly: branch created but no issue could be linked
	OutcomeBranchOnly
	// OutcomeAlreadyExists: branch was already present
	OutcomeAlreadyExists
	// OutcomeNoMatchingIssue: nothing to close
	OutcomeNoMatchingIssue
	// OutcomeFailed: hard error
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeLinked:
		return "linked"
	case OutcomeCreated:
		return "created"
	case OutcomeClosed:
		return "closed"
	case OutcomeBranchOnly:
		return "branch_only"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeNoMatchingIssue:
		return "no_matching_issue"
	default:
		return "failed"
	}
}

// RepoOutcome is the result of processing one work item
type RepoOutcome struct {
	Item        RepoWorkItem
	Kind        OutcomeKind
	IssueNumber int
	Err         error
}

// Succeeded reports whether the work item fully reached its goal
func (o RepoOutcome) Succeeded() bool {
	switch o.Kind {
	case OutcomeLinked, OutcomeCreated, OutcomeClosed:
		return true
	}
	return false
}

// Partial reports whether the branch exists but issue linkage is missing
func (o RepoOutcome) Partial() bool {
	return o.Kind == OutcomeBranchOnly
}
