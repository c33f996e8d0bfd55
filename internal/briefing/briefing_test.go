package briefing

import (
	"strings"
	"testing"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

func sampleData() models.UserData {
	return models.UserData{
		Profile: models.UserProfile{ID: "u1", Name: "Sarah Kim", Email: "sarah@example.com", Phone: "+14155550123"},
		History: []models.HistoryEntry{
			{Title: "Giants vs Dodgers", Venue: "Oracle Park", Date: "2025-07-12"},
			{Title: "Giants vs Padres", Venue: "Oracle Park", Date: "2025-06-02"},
			{Title: "Opening Day", Venue: "Oracle Park", Date: "2025-03-28"},
			{Title: "Old Game", Venue: "Oracle Park", Date: "2024-08-14"},
		},
		Preferences: models.PreferenceSet{FavoriteTeams: []string{"SF Giants"}, FavoriteSports: []string{"baseball"}},
	}
}

func sampleMatches() []models.MatchedEvent {
	return []models.MatchedEvent{
		{
			Event: models.CandidateEvent{ID: "g1", Properties: map[string]any{
				"title": "Giants vs Dodgers", "date": "2025-09-13", "venue": "Oracle Park",
			}},
			MatchScore: 0.9,
			Reasons:    []string{"Features your favorite team: SF Giants"},
			Priority:   models.PriorityHigh,
		},
		{
			Event:      models.CandidateEvent{ID: "g2", Properties: map[string]any{"title": "Giants vs Rockies"}},
			MatchScore: 0.7,
			Priority:   models.PriorityMedium,
		},
		{
			Event:      models.CandidateEvent{ID: "g3", Properties: map[string]any{"title": "Giants vs Cubs"}},
			MatchScore: 0.6,
			Priority:   models.PriorityLow,
		},
	}
}

func TestBuildIncludesSectionsAndCaps(t *testing.T) {
	b := NewBuilder(nil)
	text := b.Build(sampleData(), sampleMatches(), nil)

	for _, want := range []string{
		"Sarah Kim",
		"PREFERENCES:",
		"SF Giants",
		"RECENT GAME ATTENDANCE:",
		"AVAILABLE GAMES TO PROMOTE:",
		"Giants vs Dodgers on 2025-09-13 at Oracle Park",
		"CONVERSATION GUIDELINES:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("briefing missing %q", want)
		}
	}

	// History capped at 3 most recent entries.
	if strings.Contains(text, "Old Game") {
		t.Error("briefing should cap history at 3 entries")
	}
	// Matches capped at top 2.
	if strings.Contains(text, "Giants vs Cubs") {
		t.Error("briefing should cap promoted games at 2")
	}
}

func TestBuildOmitsEmptyPreferenceSection(t *testing.T) {
	data := sampleData()
	data.Preferences = models.PreferenceSet{}
	text := NewBuilder(nil).Build(data, nil, nil)
	if strings.Contains(text, "PREFERENCES:") {
		t.Error("empty preferences must not produce a section")
	}
	if strings.Contains(text, "AVAILABLE GAMES TO PROMOTE:") {
		t.Error("no matches must not produce a promotion section")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(nil)
	first := b.Build(sampleData(), sampleMatches(), nil)
	second := b.Build(sampleData(), sampleMatches(), nil)
	if first != second {
		t.Error("briefing must be a deterministic function of its inputs")
	}
}

func TestBuildIncludesInsightsWhenPresent(t *testing.T) {
	ins := &models.ConversationInsights{
		OpeningApproach: "Reference their loyalty and offer exclusive opportunities",
		Tone:            "Enthusiastic and knowledgeable",
		TalkingPoints:   []string{"Highlight the Giants vs Dodgers"},
		Objections:      []models.Objection{{Objection: "Price concerns", Response: "Emphasize value and payment options"}},
	}
	text := NewBuilder(nil).Build(sampleData(), sampleMatches(), ins)
	if !strings.Contains(text, "CONVERSATION STRATEGY:") {
		t.Error("insights should add a strategy section")
	}
	if !strings.Contains(text, "Price concerns") {
		t.Error("objections should be included")
	}
}

func TestFirstMessage(t *testing.T) {
	msg := FirstMessage(models.UserProfile{Name: "Sarah Kim"}, sampleMatches())
	if !strings.Contains(msg, "Sarah Kim") {
		t.Errorf("first message should greet by name: %q", msg)
	}
	if !strings.Contains(msg, "Giants vs Dodgers") {
		t.Errorf("first message should spotlight the top match: %q", msg)
	}

	msg = FirstMessage(models.UserProfile{}, nil)
	if !strings.Contains(msg, "there") || !strings.Contains(msg, "our next home game") {
		t.Errorf("fallbacks missing from %q", msg)
	}
}

func TestAssistantConfigMapping(t *testing.T) {
	cfg, err := AssistantConfig("some briefing", "hi there", Options{
		Recording: true,
		ServerURL: "https://example.com/events",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.SystemPrompt != "some briefing" {
		t.Error("briefing should become the system prompt")
	}
	if cfg.Model.Model != DefaultModel || cfg.Voice.VoiceID != DefaultVoice {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxDurationSeconds != DefaultMaxDurationSec {
		t.Errorf("default max duration not applied: %d", cfg.MaxDurationSeconds)
	}
	if !cfg.RecordingEnabled {
		t.Error("recording flag lost")
	}
	if cfg.ServerURL != "https://example.com/events" {
		t.Error("server url lost")
	}
	if cfg.Transcriber.Provider != "deepgram" {
		t.Errorf("unexpected transcriber %+v", cfg.Transcriber)
	}
}

func TestAssistantConfigRejectsMalformedInput(t *testing.T) {
	if _, err := AssistantConfig("", "hi", Options{}); err == nil {
		t.Error("empty briefing should be rejected")
	}
	if _, err := AssistantConfig("briefing", "  ", Options{}); err == nil {
		t.Error("blank first message should be rejected")
	}
}
