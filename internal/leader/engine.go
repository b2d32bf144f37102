package leader

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/internal/report"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// DefaultMaxConcurrency bounds the repositories processed at once
const DefaultMaxConcurrency = 4

// Classifier derives work items from an event
type Classifier interface {
	Classify(event *types.TaskEvent) ([]types.RepoWorkItem, error)
}

// Processor executes a single work item
type Processor interface {
	Process(ctx context.Context, item types.RepoWorkItem) (types.RepoOutcome, bool)
}

// Publisher reports outcomes back to the tracker
type Publisher interface {
	Publish(ctx context.Context, outcomes []types.RepoOutcome)
}

// Engine coordinates classification, repository processing and reporting
// for tracker events
type Engine struct {
	classifier     Classifier
	processor      Processor
	publisher      Publisher
	maxConcurrency int
	logger         *zap.Logger
}

// NewEngine creates a new engine
func NewEngine(
	classifier Classifier,
	processor Processor,
	publisher Publisher,
	maxConcurrency int,
	logger *zap.Logger,
) *Engine {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Engine{
		classifier:     classifier,
		processor:      processor,
		publisher:      publisher,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Result is the consolidated result of one event
type Result struct {
	// Outcomes holds one entry per repository in description order. It is
	// empty for rejected events and events requiring no action.
	Outcomes []types.RepoOutcome
	Message  string
}

// Sync processes one event end to end and returns the consolidated
// summary. A non-nil error is only returned for invalid events; repository
// and tracker failures are reported in the summary.
func (e *Engine) Sync(ctx context.Context, event *types.TaskEvent) (string, error) {
	result, err := e.Run(ctx, event)
	return result.Message, err
}

// Run processes one event and returns the per repository outcomes along
// with the summary
func (e *Engine) Run(ctx context.Context, event *types.TaskEvent) (*Result, error) {
	items, err := e.classifier.Classify(event)
	if err != nil {
		e.logger.Warn("rejected event", zap.Error(err))
		return &Result{Message: fmt.Sprintf("Event rejected: %v", err)}, err
	}

	logger := e.logger.With(
		zap.Int64("item_id", event.Data.ID),
		zap.String("item_type", string(event.Type)),
		zap.String("event_action", event.Action),
	)

	active := make([]types.RepoWorkItem, 0, len(items))
	for _, item := range items {
		if item.Action != types.ActionNoOp {
			active = append(active, item)
		}
	}
	if len(active) == 0 {
		logger.Info("event requires no repository action", zap.String("status_to", event.StatusTo()))
		return &Result{Message: noOpMessage(event)}, nil
	}

	logger.Info("processing event",
		zap.Stringer("action", active[0].Action),
		zap.Int("repositories", len(active)),
	)

	outcomes := e.processAll(ctx, active)
	e.publisher.Publish(ctx, outcomes)

	return &Result{Outcomes: outcomes, Message: Summary(outcomes)}, nil
}

// processAll runs the items concurrently. Results keep the input order.
func (e *Engine) processAll(ctx context.Context, items []types.RepoWorkItem) []types.RepoOutcome {
	mapper := iter.Mapper[types.RepoWorkItem, types.RepoOutcome]{
		MaxGoroutines: e.maxConcurrency,
	}
	return mapper.Map(items, func(item *types.RepoWorkItem) types.RepoOutcome {
		outcome, _ := e.processor.Process(ctx, *item)
		return outcome
	})
}

// Summary renders the caller facing result of a processed event
func Summary(outcomes []types.RepoOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d repositories:", len(outcomes))
	for _, o := range outcomes {
		fmt.Fprintf(&b, "\n[%s] %s", o.Item.FullName(), report.Describe(o))
	}
	return b.String()
}

func noOpMessage(event *types.TaskEvent) string {
	if status := event.StatusTo(); status != "" {
		return fmt.Sprintf("No repository action for %s %d: action %q with status %q", event.Type, event.Data.ID, event.Action, status)
	}
	return fmt.Sprintf("No repository action for %s %d: action %q", event.Type, event.Data.ID, event.Action)
}
