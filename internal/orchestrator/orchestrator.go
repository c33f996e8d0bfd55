// Package orchestrator coordinates the sales-call pipeline: it gathers user
// data from the graph store, pulls candidate games from the vector store,
// runs the analyst tasks, synthesizes the call briefing and places the
// outbound call.
//
// The orchestrator owns no storage and no transport of its own; it consumes
// collaborators through narrow interfaces so every stage can be exercised
// in isolation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kushal-Kongara/hackerday-sf/internal/agent"
	"github.com/Kushal-Kongara/hackerday-sf/internal/analyst"
	"github.com/Kushal-Kongara/hackerday-sf/internal/briefing"
	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
	"github.com/Kushal-Kongara/hackerday-sf/internal/outcome"
	"github.com/Kushal-Kongara/hackerday-sf/internal/util"
	"github.com/Kushal-Kongara/hackerday-sf/internal/vapi"
)

// Pipeline stage names, reported in stage-tagged errors and logs.
const (
	StageFetchUser     = "fetch_user"
	StageFetchEvents   = "fetch_events"
	StageSegment       = "segment_profile"
	StageMatch         = "match_events"
	StageSynthesize    = "synthesize"
	StageInitiateCall  = "initiate_call"
	StageRecordOutcome = "record_outcome"
)

// Limits applied while gathering inputs.
const (
	historyLimit      = 20
	similarUsersLimit = 5
	searchLimit       = 5
	maxTeamQueries    = 3
	maxSportQueries   = 2
)

// StageError tags a pipeline failure with the stage it occurred in and the
// user it was processing.
type StageError struct {
	Stage  string
	UserID string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for user %s: %v", e.Stage, e.UserID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// UserStore is the graph-side surface the pipeline consumes.
type UserStore interface {
	UserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GameHistory(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
	Preferences(ctx context.Context, userID string) (models.PreferenceSet, error)
	SimilarUsers(ctx context.Context, userID string, limit int) ([]models.SimilarUser, error)
	RecordInteraction(ctx context.Context, userID, kind string, details map[string]any) error
}

// EventSearcher is the catalog-side surface the pipeline consumes.
type EventSearcher interface {
	SearchGames(ctx context.Context, query string, limit int) ([]models.CandidateEvent, error)
}

// Config carries the tunables the pipeline reads at call time. Zero values
// are replaced with defaults in New.
type Config struct {
	// ServerURL is where call providers deliver webhook events.
	ServerURL string
	// AssistantID selects a pre-built provider assistant; empty means a
	// transient assistant is synthesized per call.
	AssistantID string
	// Voice and Model override the assistant defaults when set.
	Voice string
	Model string
	// MaxCallDuration bounds the outbound call, in seconds.
	MaxCallDuration int
	// RecordCalls enables provider-side recording.
	RecordCalls bool
	// CallRetryAttempts is the number of additional dial attempts made
	// after a provider-side failure.
	CallRetryAttempts int
	// CallRetryDelay is the base backoff between dial attempts; attempt n
	// waits n times this long.
	CallRetryDelay time.Duration
	// MaxConcurrentCalls bounds batch fan-out.
	MaxConcurrentCalls int
}

func (c *Config) applyDefaults() {
	if c.MaxCallDuration <= 0 {
		c.MaxCallDuration = briefing.DefaultMaxDurationSec
	}
	if c.CallRetryAttempts < 0 {
		c.CallRetryAttempts = 0
	}
	if c.CallRetryDelay <= 0 {
		c.CallRetryDelay = 2 * time.Second
	}
	if c.MaxConcurrentCalls <= 0 {
		c.MaxConcurrentCalls = 5
	}
}

// CallOutcome is the structured result of one pipeline run.
type CallOutcome struct {
	UserID           string `json:"user_id"`
	CallID           string `json:"call_id,omitempty"`
	UserSegment      string `json:"user_segment,omitempty"`
	GamesRecommended int    `json:"games_recommended"`
	CallInitiated    bool   `json:"call_initiated"`
}

// CallRequest identifies one user to dial.
type CallRequest struct {
	UserID      string `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
}

// BatchFailure records why one batch entry did not complete.
type BatchFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// BatchResult partitions a batch run into successes and failures. BatchID
// correlates the run's log lines and its result envelope.
type BatchResult struct {
	BatchID    string         `json:"batch_id"`
	Successful []CallOutcome  `json:"successful_calls"`
	Failed     []BatchFailure `json:"failed_calls"`
	Total      int            `json:"total"`
}

// Status is a point-in-time snapshot of the pipeline and its collaborators.
type Status struct {
	State        string       `json:"state"`
	Analyst      agent.Status `json:"analyst"`
	TrackedCalls int          `json:"tracked_calls"`
	UserStore    bool         `json:"user_store_connected"`
	EventSearch  bool         `json:"event_search_connected"`
	Dialer       bool         `json:"dialer_connected"`
}

// Orchestrator runs the staged sales-call workflow.
type Orchestrator struct {
	users   UserStore
	events  EventSearcher
	dialer  vapi.Dialer
	runner  *agent.Runner
	briefer *briefing.Builder
	tracker *outcome.Aggregator
	cfg     Config
}

// New wires the pipeline. The analyst runner and outcome tracker are owned
// here; collaborators are injected.
func New(users UserStore, events EventSearcher, dialer vapi.Dialer, briefer *briefing.Builder, tracker *outcome.Aggregator, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	if briefer == nil {
		briefer = briefing.NewBuilder(nil)
	}
	if tracker == nil {
		tracker = outcome.NewAggregator()
	}
	return &Orchestrator{
		users:   users,
		events:  events,
		dialer:  dialer,
		runner:  agent.NewRunner(analyst.New()),
		briefer: briefer,
		tracker: tracker,
		cfg:     cfg,
	}
}

// Tracker exposes the outcome aggregator so the webhook surface can feed it.
func (o *Orchestrator) Tracker() *outcome.Aggregator { return o.tracker }

// ProcessSalesCall runs the full pipeline for one user. Every failure is a
// *StageError naming the stage that halted the run.
func (o *Orchestrator) ProcessSalesCall(ctx context.Context, userID, phoneNumber string) (*CallOutcome, error) {
	if userID == "" {
		return nil, &StageError{Stage: StageFetchUser, UserID: userID, Err: models.ErrEmptyUserID}
	}
	if phoneNumber == "" {
		return nil, &StageError{Stage: StageInitiateCall, UserID: userID, Err: models.ErrEmptyPhoneNumber}
	}

	slog.Info("Orchestrator.ProcessSalesCall: starting", "user_id", userID)

	userData, err := o.fetchUser(ctx, userID)
	if err != nil {
		return nil, &StageError{Stage: StageFetchUser, UserID: userID, Err: err}
	}

	candidates := o.fetchEvents(ctx, userData.Preferences)

	analysis, err := o.segment(ctx, userID, *userData)
	if err != nil {
		return nil, &StageError{Stage: StageSegment, UserID: userID, Err: err}
	}

	matches, err := o.match(ctx, userID, analysis, candidates)
	if err != nil {
		return nil, &StageError{Stage: StageMatch, UserID: userID, Err: err}
	}

	assistant, err := o.synthesize(ctx, userID, *userData, analysis, matches)
	if err != nil {
		return nil, &StageError{Stage: StageSynthesize, UserID: userID, Err: err}
	}

	call, err := o.initiateCall(ctx, phoneNumber, assistant)
	if err != nil {
		return nil, &StageError{Stage: StageInitiateCall, UserID: userID, Err: err}
	}
	o.tracker.Track(call.ID)

	result := &CallOutcome{
		UserID:           userID,
		CallID:           call.ID,
		UserSegment:      analysis.Segment,
		GamesRecommended: len(matches),
		CallInitiated:    true,
	}

	// Best effort: a recording failure never fails a placed call.
	if err := o.recordOutcome(ctx, userID, result); err != nil {
		slog.Error("Orchestrator.ProcessSalesCall: failed to record interaction",
			"user_id", userID, "error", err.Error())
	}

	slog.Info("Orchestrator.ProcessSalesCall: completed",
		"user_id", userID, "call_id", call.ID, "segment", analysis.Segment,
		"games_recommended", len(matches))
	return result, nil
}

// fetchUser assembles everything known about the user. A missing profile is
// terminal; history, preferences and similar users degrade to empty.
func (o *Orchestrator) fetchUser(ctx context.Context, userID string) (*models.UserData, error) {
	profile, err := o.users.UserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("no profile found")
	}

	history, err := o.users.GameHistory(ctx, userID, historyLimit)
	if err != nil {
		slog.Warn("Orchestrator.fetchUser: history unavailable", "user_id", userID, "error", err.Error())
		history = nil
	}
	prefs, err := o.users.Preferences(ctx, userID)
	if err != nil {
		slog.Warn("Orchestrator.fetchUser: preferences unavailable", "user_id", userID, "error", err.Error())
		prefs = models.PreferenceSet{}
	}
	similar, err := o.users.SimilarUsers(ctx, userID, similarUsersLimit)
	if err != nil {
		slog.Warn("Orchestrator.fetchUser: similar users unavailable", "user_id", userID, "error", err.Error())
		similar = nil
	}

	return &models.UserData{
		Profile:     *profile,
		History:     history,
		Preferences: prefs,
		Similar:     similar,
	}, nil
}

// fetchEvents merges preference-driven searches into one deduplicated
// candidate list. Individual query failures are logged and skipped; an empty
// result is a valid pipeline input.
func (o *Orchestrator) fetchEvents(ctx context.Context, prefs models.PreferenceSet) []models.CandidateEvent {
	queries := buildQueries(prefs)

	var merged []models.CandidateEvent
	seen := map[string]bool{}
	for _, q := range queries {
		hits, err := o.events.SearchGames(ctx, q, searchLimit)
		if err != nil {
			slog.Warn("Orchestrator.fetchEvents: search failed", "query", q, "error", err.Error())
			continue
		}
		for _, hit := range hits {
			if hit.ID == "" || seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			merged = append(merged, hit)
			if len(merged) == models.MaxCandidateEvents {
				return merged
			}
		}
	}
	return merged
}

// buildQueries derives the search query set from preferences: up to three
// team queries, up to two sport queries, and always the generic schedule
// query.
func buildQueries(prefs models.PreferenceSet) []string {
	var queries []string
	teams := prefs.FavoriteTeams
	if len(teams) > maxTeamQueries {
		teams = teams[:maxTeamQueries]
	}
	for _, team := range teams {
		queries = append(queries, "games "+team)
	}
	sports := prefs.FavoriteSports
	if len(sports) > maxSportQueries {
		sports = sports[:maxSportQueries]
	}
	for _, sport := range sports {
		queries = append(queries, sport+" games tickets")
	}
	return append(queries, "upcoming games schedule")
}

func (o *Orchestrator) segment(ctx context.Context, userID string, data models.UserData) (*models.UserAnalysis, error) {
	task := models.NewTask(util.GenerateTaskID("segment_profile"), models.TaskSegmentProfile,
		models.TaskPayload{UserData: &data})
	result := o.runner.Execute(ctx, task)
	if result.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("profile analysis: %s", result.Error)
	}
	if result.Payload == nil || result.Payload.Analysis == nil {
		return nil, fmt.Errorf("profile analysis returned no payload")
	}
	return result.Payload.Analysis, nil
}

func (o *Orchestrator) match(ctx context.Context, userID string, analysis *models.UserAnalysis, candidates []models.CandidateEvent) ([]models.MatchedEvent, error) {
	task := models.NewTask(util.GenerateTaskID("match_events"), models.TaskMatchEvents,
		models.TaskPayload{Analysis: analysis, Candidates: candidates})
	result := o.runner.Execute(ctx, task)
	if result.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("event matching: %s", result.Error)
	}
	if result.Payload == nil {
		return nil, fmt.Errorf("event matching returned no payload")
	}
	// An empty match list is a legitimate outcome for sparse catalogs.
	return result.Payload.Matches, nil
}

// synthesize turns analysis plus matches into a ready-to-dial assistant
// configuration.
func (o *Orchestrator) synthesize(ctx context.Context, userID string, data models.UserData, analysis *models.UserAnalysis, matches []models.MatchedEvent) (*vapi.AssistantConfig, error) {
	task := models.NewTask(util.GenerateTaskID("build_insights"), models.TaskBuildInsights,
		models.TaskPayload{Analysis: analysis, Matches: matches})
	result := o.runner.Execute(ctx, task)
	if result.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("insight generation: %s", result.Error)
	}
	var insights *models.ConversationInsights
	if result.Payload != nil {
		insights = result.Payload.Insights
	}

	briefingText := o.briefer.Build(data, matches, insights)
	firstMessage := briefing.FirstMessage(data.Profile, matches)

	return briefing.AssistantConfig(briefingText, firstMessage, briefing.Options{
		Model:       o.cfg.Model,
		Voice:       o.cfg.Voice,
		MaxDuration: o.cfg.MaxCallDuration,
		Recording:   o.cfg.RecordCalls,
		ServerURL:   o.cfg.ServerURL,
	})
}

// initiateCall dials with bounded retry. Only provider-side failures are
// retried; anything else aborts immediately.
func (o *Orchestrator) initiateCall(ctx context.Context, phoneNumber string, assistant *vapi.AssistantConfig) (*vapi.Call, error) {
	req := vapi.CallRequest{
		PhoneNumber: phoneNumber,
		AssistantID: o.cfg.AssistantID,
		Assistant:   assistant,
		ServerURL:   o.cfg.ServerURL,
	}

	var lastErr error
	for attempt := 0; attempt <= o.cfg.CallRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * o.cfg.CallRetryDelay
			slog.Warn("Orchestrator.initiateCall: retrying",
				"attempt", attempt, "delay", delay.String(), "error", lastErr.Error())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		call, err := o.dialer.StartCall(ctx, req)
		if err == nil {
			return call, nil
		}
		lastErr = err

		var provErr *vapi.ProviderError
		if !errors.As(err, &provErr) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) recordOutcome(ctx context.Context, userID string, result *CallOutcome) error {
	return o.users.RecordInteraction(ctx, userID, "sales_call", map[string]any{
		"call_id":        result.CallID,
		"games_promoted": result.GamesRecommended,
		"user_segment":   result.UserSegment,
		"call_initiated": result.CallInitiated,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// ProcessBatch fans requests out over a bounded worker set and waits for all
// of them. One failed request never cancels its siblings.
func (o *Orchestrator) ProcessBatch(ctx context.Context, requests []CallRequest) BatchResult {
	batchID := uuid.NewString()
	slog.Info("Orchestrator.ProcessBatch: starting", "batch_id", batchID, "requests", len(requests))

	type indexed struct {
		outcome *CallOutcome
		err     error
	}
	results := make([]indexed, len(requests))

	sem := make(chan struct{}, o.cfg.MaxConcurrentCalls)
	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req CallRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out, err := o.ProcessSalesCall(ctx, req.UserID, req.PhoneNumber)
			results[i] = indexed{outcome: out, err: err}
		}(i, req)
	}
	wg.Wait()

	batch := BatchResult{BatchID: batchID, Total: len(requests), Successful: []CallOutcome{}, Failed: []BatchFailure{}}
	for i, res := range results {
		if res.err != nil {
			batch.Failed = append(batch.Failed, BatchFailure{
				UserID: requests[i].UserID,
				Error:  res.err.Error(),
			})
			continue
		}
		batch.Successful = append(batch.Successful, *res.outcome)
	}

	slog.Info("Orchestrator.ProcessBatch: completed", "batch_id", batchID,
		"total", batch.Total, "successful", len(batch.Successful), "failed", len(batch.Failed))
	return batch
}

// SystemStatus reports the pipeline's view of itself and its collaborators.
func (o *Orchestrator) SystemStatus() Status {
	return Status{
		State:        "running",
		Analyst:      o.runner.Status(),
		TrackedCalls: o.tracker.TrackedCalls(),
		UserStore:    o.users != nil,
		EventSearch:  o.events != nil,
		Dialer:       o.dialer != nil,
	}
}
