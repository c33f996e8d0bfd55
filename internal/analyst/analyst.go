package analyst

import (
	"context"
	"fmt"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// Analyst is the data-analysis agent: it exposes the scoring engine through
// the task harness, dispatching on task type.
type Analyst struct{}

// New constructs the analyst agent.
func New() *Analyst {
	return &Analyst{}
}

// ID identifies results produced by this agent.
func (a *Analyst) ID() string { return "data_analyst" }

// Name is the human-readable agent name used in logs.
func (a *Analyst) Name() string { return "Data Analyst Agent" }

// Process dispatches a task to the matching scoring operation. Unknown task
// types yield a failed result with a descriptive error rather than an error
// return, so the harness caches nothing and the pipeline sees a TaskError.
func (a *Analyst) Process(ctx context.Context, task models.Task) (models.TaskResult, error) {
	switch task.Type {
	case models.TaskSegmentProfile:
		return a.segmentProfile(task)
	case models.TaskMatchEvents:
		return a.matchEvents(task)
	case models.TaskBuildInsights:
		return a.buildInsights(task)
	default:
		return models.TaskResult{
			TaskID:  task.ID,
			AgentID: a.ID(),
			Status:  models.TaskStatusFailed,
			Error:   fmt.Sprintf("unknown task type: %s", task.Type),
		}, nil
	}
}

func (a *Analyst) segmentProfile(task models.Task) (models.TaskResult, error) {
	if task.Payload.UserData == nil {
		return a.failed(task, "segment_profile task requires user data"), nil
	}
	analysis := Analyze(*task.Payload.UserData)
	return a.completed(task, models.TaskPayload{Analysis: &analysis}), nil
}

func (a *Analyst) matchEvents(task models.Task) (models.TaskResult, error) {
	if task.Payload.Analysis == nil {
		return a.failed(task, "match_events task requires a user analysis"), nil
	}
	matches := MatchEvents(task.Payload.Candidates, *task.Payload.Analysis)
	return a.completed(task, models.TaskPayload{Matches: matches}), nil
}

func (a *Analyst) buildInsights(task models.Task) (models.TaskResult, error) {
	if task.Payload.Analysis == nil {
		return a.failed(task, "build_insights task requires a user analysis"), nil
	}
	insights := Insights(*task.Payload.Analysis, task.Payload.Matches)
	return a.completed(task, models.TaskPayload{Insights: &insights}), nil
}

func (a *Analyst) completed(task models.Task, payload models.TaskPayload) models.TaskResult {
	return models.TaskResult{
		TaskID:  task.ID,
		AgentID: a.ID(),
		Status:  models.TaskStatusCompleted,
		Payload: &payload,
	}
}

func (a *Analyst) failed(task models.Task, msg string) models.TaskResult {
	return models.TaskResult{
		TaskID:  task.ID,
		AgentID: a.ID(),
		Status:  models.TaskStatusFailed,
		Error:   msg,
	}
}
