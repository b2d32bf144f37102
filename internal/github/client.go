package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/clintrovert/taskbridge/internal/retry"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// DefaultAPIURL is the public GitHub REST API root
const DefaultAPIURL = "https://api.github.com"

const issuesPerPage = 100

// Client performs the repository operations needed to mirror tracker items
// as GitHub issues and branches. Every remote call goes through the retry
// executor individually.
type Client struct {
	apiClient   *github.Client
	retry       *retry.Executor
	logger      *zap.Logger
	baseBranch  string
	repoPattern *regexp.Regexp
}

// NewClient creates a new GitHub client. apiURL defaults to DefaultAPIURL
// and must be the same root used in repository URLs of tracker items.
func NewClient(accessToken, apiURL, baseBranch string, executor *retry.Executor, logger *zap.Logger) (*Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: accessToken},
	)
	tc := oauth2.NewClient(ctx, ts)
	return newClient(tc, apiURL, baseBranch, executor, logger)
}

func newClient(httpClient *http.Client, apiURL, baseBranch string, executor *retry.Executor, logger *zap.Logger) (*Client, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if baseBranch == "" {
		baseBranch = "develop"
	}

	baseURL, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse github api url: %w", err)
	}

	apiClient := github.NewClient(httpClient)
	apiClient.BaseURL = baseURL

	return &Client{
		apiClient:   apiClient,
		retry:       executor,
		logger:      logger,
		baseBranch:  baseBranch,
		repoPattern: RepoPattern(apiURL),
	}, nil
}

// RepoPattern matches repository API URLs under apiURL, capturing owner and
// repository name.
func RepoPattern(apiURL string) *regexp.Regexp {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	root := regexp.QuoteMeta(strings.TrimRight(apiURL, "/"))
	return regexp.MustCompile(root + `/repos/([\w-]+)/([\w-]+)`)
}

// GetLastCommit returns the SHA at the tip of the base branch
func (c *Client) GetLastCommit(ctx context.Context, repoURL string) (string, error) {
	owner, repo, err := c.splitRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	sha, err := retry.Do(ctx, c.retry, "get_last_commit", func(ctx context.Context) (string, error) {
		commit, resp, err := c.apiClient.Repositories.GetCommit(ctx, owner, repo, c.baseBranch, nil)
		if err != nil {
			return "", remoteError("get last commit", resp, err)
		}
		return commit.GetSHA(), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get last commit of %s/%s@%s: %w", owner, repo, c.baseBranch, err)
	}
	if !plumbing.IsHash(sha) {
		return "", fmt.Errorf("unexpected commit sha %q for %s/%s@%s", sha, owner, repo, c.baseBranch)
	}

	c.logger.Debug("resolved base commit",
		zap.String("repository", owner+"/"+repo),
		zap.String("branch", c.baseBranch),
		zap.String("sha", sha),
	)

	return sha, nil
}

// CreateBranch creates branch at the tip of the base branch. An existing
// ref is reported as *types.BranchExistsError.
func (c *Client) CreateBranch(ctx context.Context, repoURL, branch string) error {
	owner, repo, err := c.splitRepoURL(repoURL)
	if err != nil {
		return err
	}

	sha, err := c.GetLastCommit(ctx, repoURL)
	if err != nil {
		return err
	}

	ref := &github.Reference{
		Ref:    github.String(plumbing.NewBranchReferenceName(branch).String()),
		Object: &github.GitObject{SHA: github.String(sha)},
	}

	attempt := 0
	err = retry.Run(ctx, c.retry, "create_branch", func(ctx context.Context) error {
		attempt++
		_, resp, err := c.apiClient.Git.CreateRef(ctx, owner, repo, ref)
		if err != nil {
			if isReferenceExists(err) {
				// A failed earlier attempt may have created the ref before
				// its response was lost.
				if attempt > 1 && c.refPointsAt(ctx, owner, repo, branch, sha) {
					return nil
				}
				return &types.BranchExistsError{Branch: branch}
			}
			return remoteError("create branch", resp, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s in %s/%s: %w", branch, owner, repo, err)
	}

	c.logger.Info("created branch",
		zap.String("repository", owner+"/"+repo),
		zap.String("branch", branch),
		zap.String("sha", sha),
	)

	return nil
}

// refPointsAt reports whether branch exists and points at sha. Lookup
// failures report false.
func (c *Client) refPointsAt(ctx context.Context, owner, repo, branch, sha string) bool {
	existing, _, err := c.apiClient.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		c.logger.Warn("failed to inspect existing branch",
			zap.String("repository", owner+"/"+repo),
			zap.String("branch", branch),
			zap.Error(err),
		)
		return false
	}
	return existing.GetObject().GetSHA() == sha
}

// FindOpenIssue returns the number of the first open issue whose title is
// exactly title. Pull requests are ignored. found is false when no issue
// matches; that is not an error.
func (c *Client) FindOpenIssue(ctx context.Context, repoURL, title string) (int, bool, error) {
	owner, repo, err := c.splitRepoURL(repoURL)
	if err != nil {
		return 0, false, err
	}

	type page struct {
		issues []*github.Issue
		next   int
	}

	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: issuesPerPage},
	}
	for {
		p, err := retry.Do(ctx, c.retry, "list_open_issues", func(ctx context.Context) (page, error) {
			issues, resp, err := c.apiClient.Issues.ListByRepo(ctx, owner, repo, opts)
			if err != nil {
				return page{}, remoteError("list open issues", resp, err)
			}
			return page{issues: issues, next: resp.NextPage}, nil
		})
		if err != nil {
			return 0, false, fmt.Errorf("failed to list open issues of %s/%s: %w", owner, repo, err)
		}

		for _, issue := range p.issues {
			if issue.IsPullRequest() {
				continue
			}
			if issue.GetTitle() == title {
				return issue.GetNumber(), true, nil
			}
		}

		if p.next == 0 {
			return 0, false, nil
		}
		opts.Page = p.next
	}
}

// CreateIssue opens a new issue
func (c *Client) CreateIssue(ctx context.Context, repoURL, title, body string) error {
	owner, repo, err := c.splitRepoURL(repoURL)
	if err != nil {
		return err
	}

	request := &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	}

	issue, err := retry.Do(ctx, c.retry, "create_issue", func(ctx context.Context) (*github.Issue, error) {
		issue, resp, err := c.apiClient.Issues.Create(ctx, owner, repo, request)
		if err != nil {
			return nil, remoteError("create issue", resp, err)
		}
		return issue, nil
	})
	if err != nil {
		return fmt.Errorf("failed to create issue in %s/%s: %w", owner, repo, err)
	}

	c.logger.Info("created issue",
		zap.String("repository", owner+"/"+repo),
		zap.Int("issue_number", issue.GetNumber()),
		zap.String("title", title),
	)

	return nil
}

// CloseIssue sets the issue state to closed
func (c *Client) CloseIssue(ctx context.Context, repoURL string, number int) error {
	owner, repo, err := c.splitRepoURL(repoURL)
	if err != nil {
		return err
	}

	request := &github.IssueRequest{State: github.String("closed")}
	err = retry.Run(ctx, c.retry, "close_issue", func(ctx context.Context) error {
		_, resp, err := c.apiClient.Issues.Edit(ctx, owner, repo, number, request)
		if err != nil {
			return remoteError("close issue", resp, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to close issue #%d in %s/%s: %w", number, owner, repo, err)
	}

	c.logger.Info("closed issue",
		zap.String("repository", owner+"/"+repo),
		zap.Int("issue_number", number),
	)

	return nil
}

// CommentOnIssue posts a comment on an issue
func (c *Client) CommentOnIssue(ctx context.Context, repoURL string, number int, body string) error {
	owner, repo, err := c.splitRepoURL(repoURL)
	if err != nil {
		return err
	}

	comment := &github.IssueComment{Body: github.String(body)}
	err = retry.Run(ctx, c.retry, "comment_on_issue", func(ctx context.Context) error {
		_, resp, err := c.apiClient.Issues.CreateComment(ctx, owner, repo, number, comment)
		if err != nil {
			return remoteError("comment on issue", resp, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to comment on issue #%d in %s/%s: %w", number, owner, repo, err)
	}

	return nil
}

func (c *Client) splitRepoURL(repoURL string) (string, string, error) {
	m := c.repoPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", "", &types.ValidationError{Reason: fmt.Sprintf("not a repository api url: %s", repoURL)}
	}
	return m[1], m[2], nil
}

// remoteError attaches the HTTP status of resp, when there is one, so the
// retry executor can tell permanent from transient failures.
func remoteError(op string, resp *github.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	return &types.RemoteError{Op: op, StatusCode: status, Err: err}
}

func isReferenceExists(err error) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) {
		return false
	}
	if errResp.Response == nil || errResp.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(errResp.Message), "reference already exists")
}
