package leader

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/internal/classifier"
	"github.com/clintrovert/taskbridge/internal/config"
	"github.com/clintrovert/taskbridge/internal/github"
	"github.com/clintrovert/taskbridge/internal/jira"
	"github.com/clintrovert/taskbridge/internal/orchestrator"
	"github.com/clintrovert/taskbridge/internal/report"
	"github.com/clintrovert/taskbridge/internal/retry"
	"github.com/clintrovert/taskbridge/internal/taiga"
)

// NewEngineFromEnv builds an engine backed by GitHub and the configured
// tracker
func NewEngineFromEnv(env *config.Env, logger *zap.Logger) (*Engine, error) {
	executor := retry.NewExecutor(env.RetryMaxAttempts, env.RetryBaseDelay, env.CallTimeout, logger)

	githubClient, err := github.NewClient(env.Token, env.APIURL, env.BaseBranch, executor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	tracker, err := NewTracker(env, executor, logger)
	if err != nil {
		return nil, err
	}

	location, err := report.LoadLocation(env.ReportTimezone)
	if err != nil {
		return nil, err
	}

	return NewEngine(
		classifier.New(env.APIURL, env.StatusInProgress, env.StatusDone),
		orchestrator.New(githubClient, logger),
		report.New(tracker, location, logger),
		env.MaxConcurrency,
		logger,
	), nil
}

// NewTracker creates the tracker client selected by TRACKER
func NewTracker(env *config.Env, executor *retry.Executor, logger *zap.Logger) (report.Tracker, error) {
	switch strings.ToLower(env.Tracker) {
	case config.TrackerJira:
		client, err := jira.NewClient(env.JiraBaseURL, env.JiraUsername, env.JiraToken, executor, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create jira client: %w", err)
		}
		return client, nil
	case config.TrackerTaiga:
		client, err := taiga.NewClient(env.TaigaAPIURL, env.TaigaUsername, env.TaigaPassword, env.TaigaTokenTTL, executor, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create taiga client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported tracker %q", env.Tracker)
	}
}
