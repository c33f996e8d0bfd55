// Package briefing assembles the conversational context handed to the call
// provider's model: the briefing text, the opening line, and the
// provider-facing assistant configuration.
//
// Assembly is deterministic text/field mapping with no network calls; the
// only failures are malformed inputs.
package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Kushal-Kongara/hackerday-sf/internal/genai"
	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
	"github.com/Kushal-Kongara/hackerday-sf/internal/vapi"
)

// Defaults applied to the assistant configuration.
const (
	DefaultModel          = "gpt-4o-realtime-preview"
	DefaultVoice          = "alloy"
	DefaultMaxDurationSec = 300
	defaultRepName        = "the ticket office"
)

// Builder renders briefings and assistant configurations. A nil-genai
// Builder is fully functional; the GenAI client only polishes wording.
type Builder struct {
	genai *genai.Client
}

// NewBuilder constructs a Builder. gen may be nil to disable polish.
func NewBuilder(gen *genai.Client) *Builder {
	return &Builder{genai: gen}
}

// Build assembles the full sales briefing from user data and the ranked
// matches. Preference and history sections appear only when non-empty; at
// most MaxBriefingHistory history entries and MaxBriefingEvents matches are
// included.
func (b *Builder) Build(data models.UserData, matched []models.MatchedEvent, insights *models.ConversationInsights) string {
	var sb strings.Builder

	sb.WriteString("TICKET SALES AGENT CONTEXT\n")
	sb.WriteString(strings.Repeat("=", 30) + "\n\n")
	sb.WriteString("ROLE: You are a friendly and knowledgeable ticket sales agent calling to offer\n")
	sb.WriteString("game tickets based on the customer's interests and history.\n\n")

	sb.WriteString("USER INFORMATION:\n")
	name := data.Profile.Name
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&sb, "- Name: %s\n", name)
	if data.Profile.Email != "" {
		fmt.Fprintf(&sb, "- Email: %s\n", data.Profile.Email)
	}
	if data.Profile.Phone != "" {
		fmt.Fprintf(&sb, "- Phone: %s\n", data.Profile.Phone)
	}

	if !data.Preferences.Empty() {
		sb.WriteString("\nPREFERENCES:\n")
		if len(data.Preferences.FavoriteTeams) > 0 {
			fmt.Fprintf(&sb, "- Favorite Teams: %s\n", strings.Join(data.Preferences.FavoriteTeams, ", "))
		}
		if len(data.Preferences.FavoriteSports) > 0 {
			fmt.Fprintf(&sb, "- Favorite Sports: %s\n", strings.Join(data.Preferences.FavoriteSports, ", "))
		}
	}

	if len(data.History) > 0 {
		sb.WriteString("\nRECENT GAME ATTENDANCE:\n")
		for i, h := range data.History {
			if i == models.MaxBriefingHistory {
				break
			}
			venue := h.Venue
			if venue == "" {
				venue = "N/A"
			}
			fmt.Fprintf(&sb, "- %s at %s (%s)\n", h.Title, venue, h.Date)
		}
	}

	if len(matched) > 0 {
		sb.WriteString("\nAVAILABLE GAMES TO PROMOTE:\n")
		for i, m := range matched {
			if i == models.MaxBriefingEvents {
				break
			}
			fmt.Fprintf(&sb, "- %s on %s at %s\n",
				m.Event.Title(), propOr(m.Event, "date", "TBD"), propOr(m.Event, "venue", "TBD"))
			for _, reason := range m.Reasons {
				fmt.Fprintf(&sb, "  (%s)\n", reason)
			}
		}
	}

	if insights != nil {
		sb.WriteString("\nCONVERSATION STRATEGY:\n")
		fmt.Fprintf(&sb, "- Opening: %s\n", insights.OpeningApproach)
		fmt.Fprintf(&sb, "- Style: %s\n", insights.Tone)
		for _, point := range b.polishTalkingPoints(insights.TalkingPoints) {
			fmt.Fprintf(&sb, "- %s\n", point)
		}
		for _, obj := range insights.Objections {
			fmt.Fprintf(&sb, "- If %q: %s\n", obj.Objection, obj.Response)
		}
	}

	sb.WriteString("\nCONVERSATION GUIDELINES:\n")
	sb.WriteString("- Be warm, friendly, and professional\n")
	sb.WriteString("- Reference their past attendance and preferences\n")
	sb.WriteString("- Focus on games that match their interests\n")
	sb.WriteString("- Pitch single-game tickets and always provide the purchase link in-call\n")
	sb.WriteString("- Handle objections gracefully\n")
	sb.WriteString("- Always end with a clear next step\n\n")
	sb.WriteString("Remember: This is a real customer call. Be natural and conversational!")

	return sb.String()
}

// FirstMessage renders the opening line spoken before the customer replies.
func FirstMessage(profile models.UserProfile, matched []models.MatchedEvent) string {
	name := profile.Name
	if name == "" {
		name = "there"
	}
	spotlight := "our next home game"
	if len(matched) > 0 {
		spotlight = matched[0].Event.Title()
	}
	return fmt.Sprintf(
		"Hi %s, this is %s. I've got great single-game options for %s. Do you have a quick minute?",
		name, defaultRepName, spotlight)
}

// Options tunes the assistant configuration produced by AssistantConfig.
type Options struct {
	Model       string
	Voice       string
	MaxDuration int
	Recording   bool
	ServerURL   string
}

// AssistantConfig maps a briefing into the provider's assistant shape. It is
// a pure mapping; the only error is an empty briefing or first message.
func AssistantConfig(briefingText, firstMessage string, opts Options) (*vapi.AssistantConfig, error) {
	if strings.TrimSpace(briefingText) == "" {
		return nil, models.ErrEmptyBriefing
	}
	if strings.TrimSpace(firstMessage) == "" {
		return nil, fmt.Errorf("first message cannot be empty")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	if opts.MaxDuration == 0 {
		opts.MaxDuration = DefaultMaxDurationSec
	}

	return &vapi.AssistantConfig{
		Name: "Ticket Sales Rep",
		Model: vapi.ModelConfig{
			Provider:     "openai",
			Model:        opts.Model,
			Temperature:  0.7,
			MaxTokens:    300,
			SystemPrompt: briefingText,
		},
		Voice: vapi.VoiceConfig{
			Provider: "openai",
			VoiceID:  opts.Voice,
		},
		Transcriber: vapi.TranscriberConfig{
			Provider: "deepgram",
			Model:    "nova-2",
			Language: "en-US",
		},
		FirstMessageMode:   "assistant",
		FirstMessage:       firstMessage,
		EndCallMessage:     "Thank you for your time! Have a wonderful day!",
		EndCallPhrases:     []string{"goodbye", "hang up", "end call"},
		RecordingEnabled:   opts.Recording,
		MaxDurationSeconds: opts.MaxDuration,
		StopSpeaking: &vapi.StopSpeakingPlan{
			NumWords:       4,
			VoiceSeconds:   0.3,
			BackoffSeconds: 3,
		},
		ServerURL: opts.ServerURL,
	}, nil
}

// polishTalkingPoints optionally rewrites the points through GenAI. Any
// failure falls back to the deterministic points.
func (b *Builder) polishTalkingPoints(points []string) []string {
	if b.genai == nil || len(points) == 0 {
		return points
	}
	polished, err := b.genai.Generate(context.Background(),
		"You rewrite sales talking points to sound natural on a phone call. Return one point per line, same order, no numbering.",
		strings.Join(points, "\n"))
	if err != nil {
		slog.Warn("Builder.polishTalkingPoints: polish failed, using deterministic points", "error", err)
		return points
	}
	lines := strings.Split(strings.TrimSpace(polished), "\n")
	if len(lines) != len(points) {
		return points
	}
	return lines
}

func propOr(e models.CandidateEvent, key, fallback string) string {
	if v, ok := e.Properties[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
