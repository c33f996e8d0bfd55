// Package agent provides the task execution harness for scoring agents.
//
// An Agent implements one scoring domain; the Runner wraps it with status
// tracking, timing, a results cache, and an error boundary that converts any
// failure into a failed TaskResult instead of propagating it to the pipeline.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// Agent is the polymorphic capability implemented by concrete scoring
// variants. Process may return an error; the Runner owns converting it into
// a failed result.
type Agent interface {
	// ID returns the stable identifier stamped onto produced results.
	ID() string
	// Name returns the human-readable agent name used in logs.
	Name() string
	// Process executes one task. Implementations must be side-effect-free
	// with respect to the Runner's bookkeeping.
	Process(ctx context.Context, task models.Task) (models.TaskResult, error)
}

// State describes what the Runner is currently doing. Status is overwritten,
// not queued: a Runner supports one in-flight task at a time, and callers
// needing concurrency instantiate multiple Runners.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is a point-in-time snapshot of a Runner.
type Status struct {
	AgentID       string `json:"agent_id"`
	Name          string `json:"name"`
	State         State  `json:"status"`
	CachedResults int    `json:"cached_results"`
}

// Runner executes tasks through an Agent with uniform bookkeeping.
type Runner struct {
	agent Agent

	mu    sync.Mutex
	state State
	// cache holds completed results keyed by task id, last-write-wins.
	// Unbounded growth is accepted for a single run's lifetime.
	cache map[string]models.TaskResult
}

// NewRunner wraps an agent in a fresh harness.
func NewRunner(a Agent) *Runner {
	slog.Debug("Runner.NewRunner: initialized agent harness", "agent_id", a.ID(), "name", a.Name())
	return &Runner{agent: a, state: StateIdle, cache: make(map[string]models.TaskResult)}
}

// Execute runs one task through the agent. It never returns an error: the
// harness is the error boundary between a scoring operation and the
// pipeline, so invalid tasks, unknown types, returned errors and panics all
// become a failed TaskResult.
func (r *Runner) Execute(ctx context.Context, task models.Task) models.TaskResult {
	start := time.Now()
	r.setState(StateRunning)
	slog.Info("Runner.Execute: starting task", "agent", r.agent.Name(), "task_id", task.ID, "type", task.Type)

	if err := task.Validate(); err != nil {
		return r.fail(task, start, err.Error())
	}

	result, err := r.process(ctx, task)
	result.Duration = time.Since(start).Seconds()
	if err != nil {
		return r.fail(task, start, err.Error())
	}
	if result.Status == models.TaskStatusFailed {
		r.setState(StateFailed)
		if result.Error == "" {
			result.Error = fmt.Sprintf("agent %s failed task %s", r.agent.Name(), task.ID)
		}
		slog.Error("Runner.Execute: task failed", "agent", r.agent.Name(), "task_id", task.ID, "error", result.Error)
		return result
	}

	r.mu.Lock()
	r.cache[task.ID] = result
	r.state = StateCompleted
	r.mu.Unlock()

	slog.Info("Runner.Execute: task completed", "agent", r.agent.Name(), "task_id", task.ID, "duration_s", result.Duration)
	return result
}

// process invokes the agent, converting a panic into an error.
func (r *Runner) process(ctx context.Context, task models.Task) (result models.TaskResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent %s panicked on task %s: %v", r.agent.Name(), task.ID, rec)
		}
	}()
	return r.agent.Process(ctx, task)
}

func (r *Runner) fail(task models.Task, start time.Time, msg string) models.TaskResult {
	r.setState(StateFailed)
	slog.Error("Runner.Execute: task failed", "agent", r.agent.Name(), "task_id", task.ID, "error", msg)
	return models.TaskResult{
		TaskID:   task.ID,
		AgentID:  r.agent.ID(),
		Status:   models.TaskStatusFailed,
		Error:    msg,
		Duration: time.Since(start).Seconds(),
	}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// CachedResult returns the completed result for a task id, if present.
func (r *Runner) CachedResult(taskID string) (models.TaskResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.cache[taskID]
	return res, ok
}

// ClearCache resets the results cache.
func (r *Runner) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]models.TaskResult)
	r.mu.Unlock()
	slog.Debug("Runner.ClearCache: cache reset", "agent", r.agent.Name())
}

// Status reports the runner's current state and cache size.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		AgentID:       r.agent.ID(),
		Name:          r.agent.Name(),
		State:         r.state,
		CachedResults: len(r.cache),
	}
}
