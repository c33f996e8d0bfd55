// Package models defines the core data structures for the sales-call pipeline.
//
// It includes task and result envelopes for the agent harness, user records
// read from the graph store, candidate events returned by vector search, and
// the derived analysis/match types shared across modules.
package models

import (
	"errors"
	"time"
)

// TaskType identifies which scoring operation a task requests.
type TaskType string

const (
	// TaskSegmentProfile analyzes a user's profile, history and preferences.
	TaskSegmentProfile TaskType = "segment_profile"
	// TaskMatchEvents scores candidate events against a user analysis.
	TaskMatchEvents TaskType = "match_events"
	// TaskBuildInsights synthesizes conversation insights from analysis and matches.
	TaskBuildInsights TaskType = "build_insights"
)

// TaskStatus tracks the lifecycle of a task inside the harness.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Error variables for better error handling and testability
var (
	ErrEmptyTaskID        = errors.New("task id cannot be empty")
	ErrInvalidTaskType    = errors.New("invalid task type")
	ErrMissingPayload     = errors.New("completed result requires a payload")
	ErrMissingError       = errors.New("failed result requires an error message")
	ErrEmptyUserID        = errors.New("user id cannot be empty")
	ErrEmptyPhoneNumber   = errors.New("phone number cannot be empty")
	ErrEmptyBriefing      = errors.New("briefing cannot be empty")
	ErrUnknownInteraction = errors.New("interaction type cannot be empty")
)

// IsValidTaskType checks if the given task type is supported.
func IsValidTaskType(tt TaskType) bool {
	switch tt {
	case TaskSegmentProfile, TaskMatchEvents, TaskBuildInsights:
		return true
	default:
		return false
	}
}

// TaskPayload carries the inputs and outputs of scoring tasks. Only the
// fields relevant to the task's type are populated.
type TaskPayload struct {
	UserData   *UserData             `json:"user_data,omitempty"`
	Analysis   *UserAnalysis         `json:"analysis,omitempty"`
	Candidates []CandidateEvent      `json:"candidates,omitempty"`
	Matches    []MatchedEvent        `json:"matches,omitempty"`
	Insights   *ConversationInsights `json:"insights,omitempty"`
}

// Task is one unit of work for an agent. Tasks are created by the pipeline,
// consumed once, and never mutated after creation.
type Task struct {
	ID           string      `json:"id"`
	Type         TaskType    `json:"type"`
	Payload      TaskPayload `json:"payload"`
	Priority     int         `json:"priority,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
}

// NewTask constructs a Task with an always-non-nil dependency list.
func NewTask(id string, tt TaskType, payload TaskPayload) Task {
	return Task{ID: id, Type: tt, Payload: payload, Priority: 1, Dependencies: []string{}}
}

// Validate performs structural validation on a Task.
func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}
	if !IsValidTaskType(t.Type) {
		return ErrInvalidTaskType
	}
	return nil
}

// TaskResult is the immutable outcome of executing a Task.
type TaskResult struct {
	TaskID   string       `json:"task_id"`
	AgentID  string       `json:"agent_id"`
	Status   TaskStatus   `json:"status"`
	Payload  *TaskPayload `json:"payload,omitempty"`
	Error    string       `json:"error,omitempty"`
	Duration float64      `json:"duration,omitempty"`
}

// Validate enforces the payload/error invariants for terminal statuses.
func (r *TaskResult) Validate() error {
	switch r.Status {
	case TaskStatusCompleted:
		if r.Payload == nil {
			return ErrMissingPayload
		}
	case TaskStatusFailed:
		if r.Error == "" {
			return ErrMissingError
		}
	}
	return nil
}

// UserProfile holds identity and contact fields owned by the graph store.
// The pipeline treats it as read-only.
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HistoryEntry is one past attendance record, ordered by date descending
// when fetched from the graph store.
type HistoryEntry struct {
	EventID    string `json:"event_id"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Venue      string `json:"venue,omitempty"`
	TicketTier string `json:"ticket_tier,omitempty"`
	// Rating is the recorded satisfaction in [1,5]; 0 means not recorded.
	Rating int `json:"rating,omitempty"`
}

// PreferenceSet captures a user's explicit interests.
type PreferenceSet struct {
	FavoriteTeams  []string       `json:"favorite_teams,omitempty"`
	FavoriteSports []string       `json:"favorite_sports,omitempty"`
	Raw            map[string]any `json:"raw_preferences,omitempty"`
}

// Empty reports whether the user expressed no explicit interests.
func (p PreferenceSet) Empty() bool {
	return len(p.FavoriteTeams) == 0 && len(p.FavoriteSports) == 0
}

// SimilarUser is a neighbor in the attendance graph with an overlap score.
type SimilarUser struct {
	UserID      string  `json:"user_id"`
	Name        string  `json:"name,omitempty"`
	CommonGames int     `json:"common_games"`
	Similarity  float64 `json:"similarity_score"`
}

// UserData bundles everything known about one user for a pipeline run.
type UserData struct {
	Profile     UserProfile    `json:"profile"`
	History     []HistoryEntry `json:"history"`
	Preferences PreferenceSet  `json:"preferences"`
	Similar     []SimilarUser  `json:"similar_users,omitempty"`
}

// CandidateEvent is a search hit from the vector store, deduplicated by ID
// before scoring.
type CandidateEvent struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	Relevance  float64        `json:"relevance_score"`
	Distance   float64        `json:"distance"`
}

// Title returns the event title property, or a fallback when missing.
func (e CandidateEvent) Title() string {
	if t, ok := e.Properties["title"].(string); ok && t != "" {
		return t
	}
	return "upcoming game"
}

// Segment labels classifying a user's engagement depth. Evaluated strictly
// in threshold order by the analyst.
const (
	SegmentVIP        = "VIP_Fan"
	SegmentRegular    = "Regular_Attendee"
	SegmentOccasional = "Occasional_Fan"
	SegmentInterested = "Interested_Prospect"
	SegmentNew        = "New_Prospect"
)

// Engagement levels derived from recent satisfaction ratings.
const (
	EngagementHigh   = "High"
	EngagementMedium = "Medium"
	EngagementLow    = "Low"
)

// SpendingPattern summarizes ticket-tier behavior.
type SpendingPattern struct {
	Pattern      string  `json:"pattern"`
	TypicalTier  string  `json:"average_ticket_type"`
	PremiumShare float64 `json:"premium_preference"`
}

// LastActivity describes a user's most recent attendance, or its absence.
type LastActivity struct {
	Status string `json:"status,omitempty"`
	Title  string `json:"game,omitempty"`
	Date   string `json:"date,omitempty"`
	Rating int    `json:"satisfaction,omitempty"`
}

// ContactPreferences captures how and when to reach the user.
type ContactPreferences struct {
	Method string `json:"preferred_method"`
	Time   string `json:"best_time"`
	Tone   string `json:"tone"`
}

// UserAnalysis is the derived, immutable snapshot computed once per pipeline
// run. It is never persisted by the core.
type UserAnalysis struct {
	Segment             string             `json:"user_segment"`
	EngagementLevel     string             `json:"engagement_level"`
	PreferredCategories []string           `json:"preferred_categories"`
	Spending            SpendingPattern    `json:"spending_pattern"`
	LastActivity        LastActivity       `json:"last_activity"`
	Contact             ContactPreferences `json:"contact_preferences"`
	RiskFactors         []string           `json:"risk_factors"`
}

// Priority buckets a matched event by score.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// MatchedEvent pairs a candidate with its score and justifications.
// Lists of MatchedEvent are sorted descending by score and capped at
// MaxMatchedEvents.
type MatchedEvent struct {
	Event      CandidateEvent `json:"game"`
	MatchScore float64        `json:"match_score"`
	Reasons    []string       `json:"reasons"`
	Priority   Priority       `json:"priority"`
}

// Caps applied by the analyst and briefing builder.
const (
	// MaxMatchedEvents limits how many matches a match_events task returns.
	MaxMatchedEvents = 5
	// MaxBriefingHistory limits history entries shown in a briefing.
	MaxBriefingHistory = 3
	// MaxBriefingEvents limits matched events promoted in a briefing.
	MaxBriefingEvents = 2
	// MaxCandidateEvents caps the merged, deduplicated search result set.
	MaxCandidateEvents = 10
)

// Objection is a predicted pushback with a suggested response.
type Objection struct {
	Objection string `json:"objection"`
	Response  string `json:"response"`
}

// Offer is a concrete proposal to make during the call.
type Offer struct {
	EventTitle string `json:"game"`
	OfferType  string `json:"offer_type"`
	Urgency    string `json:"urgency"`
}

// FollowUpPlan describes what happens after the call.
type FollowUpPlan struct {
	Timing  string `json:"timing"`
	Method  string `json:"method"`
	Content string `json:"content"`
}

// ConversationInsights is a pure function of UserAnalysis plus the top
// matched events: everything the voice assistant needs beyond the briefing.
type ConversationInsights struct {
	OpeningApproach string       `json:"opening_approach"`
	TalkingPoints   []string     `json:"key_talking_points"`
	Objections      []Objection  `json:"potential_objections"`
	Offers          []Offer      `json:"recommended_offers"`
	Tone            string       `json:"conversation_style"`
	BestContactTime string       `json:"best_contact_time"`
	FollowUp        FollowUpPlan `json:"follow_up_strategy"`
}

// CallState is the aggregator's per-call snapshot. Transcript holds the
// latest full value, not a diff; LinkSent is monotone once true.
type CallState struct {
	Transcript string `json:"transcript"`
	LinkSent   bool   `json:"link_sent"`
	Summary    string `json:"summary"`
}
