package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Tracker backends
const (
	TrackerTaiga = "taiga"
	TrackerJira  = "jira"
)

type GitHubEnv struct {
	Token      string `envconfig:"GITHUB_TOKEN" required:"true"`
	APIURL     string `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
	BaseBranch string `envconfig:"GITHUB_BASE_BRANCH" default:"develop"`
}

type TrackerEnv struct {
	Tracker       string        `envconfig:"TRACKER" default:"taiga"`
	TaigaAPIURL   string        `envconfig:"TAIGA_API_URL" default:"https://api.taiga.io/api/v1"`
	TaigaUsername string        `envconfig:"TAIGA_USERNAME"`
	TaigaPassword string        `envconfig:"TAIGA_PASSWORD"`
	TaigaTokenTTL time.Duration `envconfig:"TAIGA_TOKEN_TTL" default:"1h"`
	JiraBaseURL   string        `envconfig:"JIRA_BASE_URL"`
	JiraUsername  string        `envconfig:"JIRA_USERNAME"`
	JiraToken     string        `envconfig:"JIRA_TOKEN"`
}

type SyncEnv struct {
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	CallTimeout      time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`
	MaxConcurrency   int           `envconfig:"SYNC_MAX_CONCURRENCY" default:"4"`
	StatusInProgress string        `envconfig:"STATUS_IN_PROGRESS" default:"In progress"`
	StatusDone       string        `envconfig:"STATUS_DONE" default:"Finalizada"`
	ReportTimezone   string        `envconfig:"REPORT_TIMEZONE" default:"America/Bogota"`
}

type ServerEnv struct {
	RESTPort          string `envconfig:"REST_PORT" default:"3005"`
	GRPCPort          string `envconfig:"GRPC_PORT" default:"9090"`
	TemporalAddress   string `envconfig:"TEMPORAL_ADDRESS"`
	TemporalNamespace string `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	TaskQueue         string `envconfig:"TASK_QUEUE" default:"taskbridge-sync"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
}

type Env struct {
	GitHubEnv
	TrackerEnv
	SyncEnv
	ServerEnv
}

// LoadEnv reads and validates the process environment
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate reports every missing credential or out of range setting
func (e *Env) Validate() error {
	var errs []error

	if e.Token == "" {
		errs = append(errs, errors.New("GITHUB_TOKEN is required"))
	}

	switch strings.ToLower(e.Tracker) {
	case TrackerTaiga:
		if e.TaigaUsername == "" || e.TaigaPassword == "" {
			errs = append(errs, errors.New("TAIGA_USERNAME and TAIGA_PASSWORD are required for the taiga tracker"))
		}
		if e.TaigaTokenTTL <= 0 {
			errs = append(errs, errors.New("TAIGA_TOKEN_TTL must be positive"))
		}
	case TrackerJira:
		if e.JiraBaseURL == "" || e.JiraUsername == "" || e.JiraToken == "" {
			errs = append(errs, errors.New("JIRA_BASE_URL, JIRA_USERNAME and JIRA_TOKEN are required for the jira tracker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported TRACKER %q", e.Tracker))
	}

	if e.RetryMaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if e.RetryBaseDelay < 0 || e.CallTimeout < 0 {
		errs = append(errs, errors.New("RETRY_BASE_DELAY and CALL_TIMEOUT must not be negative"))
	}
	if e.MaxConcurrency < 1 {
		errs = append(errs, errors.New("SYNC_MAX_CONCURRENCY must be at least 1"))
	}
	if _, err := time.LoadLocation(e.ReportTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid REPORT_TIMEZONE: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Async reports whether events are dispatched to Temporal
func (e *Env) Async() bool {
	return e.TemporalAddress != ""
}

// ZapLevel parses LOG_LEVEL, falling back to info
func (e *ServerEnv) ZapLevel() zapcore.Level {
	if e == nil {
		return zapcore.InfoLevel
	}
	level, err := zapcore.ParseLevel(e.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// NewLogger builds a production logger at the configured level
func (e *ServerEnv) NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(e.ZapLevel())
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
