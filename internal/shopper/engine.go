package shopper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/metrics"
)

// EngineConfig controls Engine behavior.
type EngineConfig struct {
	// MaxSteps is the step budget handed to the oracle; the engine also
	// stops deriving new frontiers once the budget is spent.
	MaxSteps int
	// CompletionTopic names the topic completion events publish to.
	CompletionTopic string
}

// Engine drives one task's browse loop: extract a frontier, resolve one
// choice, persist it, repeat until a terminal action or an empty frontier.
// An Engine is the sole writer of its task's state; it is not safe for
// concurrent use.
type Engine struct {
	task      Task
	agent     Agent
	site      Site
	pages     PageSource
	extractor *Extractor
	oracle    Oracle
	tasks     TaskStore
	trace     TraceStore
	publisher Publisher
	cfg       EngineConfig
	logger    *zap.Logger

	searchURL string
	history   []Action
	frontier  []Action
}

// NewEngine constructs an Engine bound to one task.
func NewEngine(
	task Task,
	agent Agent,
	site Site,
	pages PageSource,
	extractor *Extractor,
	oracle Oracle,
	tasks TaskStore,
	trace TraceStore,
	publisher Publisher,
	cfg EngineConfig,
	logger *zap.Logger,
) *Engine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		task:      task,
		agent:     agent,
		site:      site,
		pages:     pages,
		extractor: extractor,
		oracle:    oracle,
		tasks:     tasks,
		trace:     trace,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(zap.String("task_id", task.ID), zap.String("agent_id", agent.ID)),
	}
}

// Run executes the task loop to completion. Fetch and persistence failures
// abort the loop and leave the task in its last persisted status; reaching
// the terminal action or failing to resolve a candidate finishes the task.
func (e *Engine) Run(ctx context.Context) error {
	e.searchURL = e.site.SearchURL(e.task.Goal)

	if err := e.tasks.UpdateTaskStatus(ctx, e.task.ID, TaskStatusInProgress, ""); err != nil {
		return fmt.Errorf("mark task in progress: %w", err)
	}
	metrics.TasksStarted.Inc()

	if err := e.resume(ctx); err != nil {
		e.recordFailure(ctx, err)
		return err
	}

	for {
		action, resolved, err := e.resolveNext(ctx)
		if err != nil {
			e.recordFailure(ctx, err)
			return err
		}

		if resolved {
			step, err := e.trace.Append(ctx, e.task.ID, action)
			if err != nil {
				appendErr := fmt.Errorf("append trace step: %w", err)
				e.recordFailure(ctx, appendErr)
				return appendErr
			}
			e.history = append(e.history, action)
			metrics.StepsRecorded.Inc()
			e.logger.Info("action chosen",
				zap.Int("step", step),
				zap.String("action_id", action.ID),
				zap.String("action_type", string(action.Type)),
			)
		}

		if !resolved || action.Type.Terminal() || len(e.history) >= e.cfg.MaxSteps {
			break
		}

		frontier, err := e.deriveFrontier(ctx, action.TargetURL)
		if err != nil {
			e.recordFailure(ctx, err)
			return err
		}
		e.frontier = frontier
	}

	return e.finish(ctx)
}

// resume replays the persisted trace into history and rebuilds the frontier.
// A fresh task seeds the frontier with the single QueryGoal action; a task
// resumed mid-run re-derives the frontier from its last chosen action so
// already-chosen steps are never re-selected.
func (e *Engine) resume(ctx context.Context) error {
	entries, err := e.trace.Load(ctx, e.task.ID)
	if err != nil {
		return fmt.Errorf("load trace: %w", err)
	}

	if len(entries) == 0 {
		initial, err := e.extractor.newAction(ActionQueryGoal, e.task.Goal, e.searchURL)
		if err != nil {
			return err
		}
		e.frontier = []Action{initial}
		return nil
	}

	e.history = make([]Action, 0, len(entries))
	for _, entry := range entries {
		e.history = append(e.history, entry.Action)
	}
	e.logger.Info("resumed task from trace", zap.Int("steps", len(e.history)))

	last := e.history[len(e.history)-1]
	if last.Type.Terminal() || last.TargetURL == "" || len(e.history) >= e.cfg.MaxSteps {
		e.frontier = nil
		return nil
	}
	frontier, err := e.deriveFrontier(ctx, last.TargetURL)
	if err != nil {
		return err
	}
	e.frontier = frontier
	return nil
}

// resolveNext picks one action from the frontier. A single candidate is
// auto-selected without consulting the oracle; an empty frontier or an
// unmatchable oracle answer resolves nothing, which terminates the loop.
func (e *Engine) resolveNext(ctx context.Context) (Action, bool, error) {
	switch len(e.frontier) {
	case 0:
		return Action{}, false, nil
	case 1:
		return e.frontier[0], true, nil
	}

	metrics.OracleCalls.Inc()
	chosenID, err := e.oracle.Choose(ctx, Decision{
		Goal:     e.task.Goal,
		Frontier: e.frontier,
		History:  e.history,
		Profile:  e.agent.Profile,
		MaxSteps: e.cfg.MaxSteps,
	})
	if err != nil {
		metrics.OracleFailures.Inc()
		return Action{}, false, fmt.Errorf("oracle choose: %w", err)
	}

	chosenID = strings.TrimSpace(chosenID)
	for _, action := range e.frontier {
		if action.ID == chosenID {
			return action, true, nil
		}
	}
	e.logger.Info("oracle returned no matchable action", zap.String("chosen_id", chosenID))
	return Action{}, false, nil
}

// deriveFrontier replaces the candidate set with a fresh extraction from the
// given URL. The previous frontier is discarded, never accumulated.
func (e *Engine) deriveFrontier(ctx context.Context, url string) ([]Action, error) {
	content, err := e.pages.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	frontier, err := e.extractor.Extract(e.site.Classify(url), content, Session{
		PageURL:   url,
		SearchURL: e.searchURL,
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}
	return frontier, nil
}

func (e *Engine) finish(ctx context.Context) error {
	if err := e.tasks.UpdateTaskStatus(ctx, e.task.ID, TaskStatusFinished, ""); err != nil {
		return fmt.Errorf("mark task finished: %w", err)
	}
	metrics.TasksFinished.Inc()
	e.logger.Info("task finished", zap.Int("steps", len(e.history)))

	if e.publisher != nil {
		event := CompletionEvent{
			TaskID:  e.task.ID,
			AgentID: e.agent.ID,
			Goal:    e.task.Goal,
			Status:  TaskStatusFinished,
			Steps:   len(e.history),
		}
		if _, err := e.publisher.Publish(ctx, e.cfg.CompletionTopic, event); err != nil {
			// Completion events are advisory; the trace is already durable.
			e.logger.Warn("publish completion event failed", zap.Error(err))
		}
	}
	return nil
}

// recordFailure surfaces an aborted loop on the task row without touching
// the status, so callers can distinguish "finished" from "stalled mid-run".
func (e *Engine) recordFailure(ctx context.Context, cause error) {
	metrics.TasksFailed.Inc()
	e.logger.Error("task aborted", zap.Error(cause))
	task, err := e.tasks.GetTask(ctx, e.task.ID)
	if err != nil {
		return
	}
	if err := e.tasks.UpdateTaskStatus(ctx, e.task.ID, task.Status, cause.Error()); err != nil {
		e.logger.Warn("record task error text failed", zap.Error(err))
	}
}
