package analyst

import (
	"fmt"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// Insights synthesizes conversation guidance from a user analysis and the
// top matched events. Pure function: same inputs, same briefing.
func Insights(analysis models.UserAnalysis, matched []models.MatchedEvent) models.ConversationInsights {
	return models.ConversationInsights{
		OpeningApproach: openingApproach(analysis.Segment),
		TalkingPoints:   talkingPoints(matched),
		Objections:      predictObjections(),
		Offers:          suggestOffers(matched),
		Tone:            conversationTone(analysis.EngagementLevel),
		BestContactTime: "Early evening (6-8 PM)",
		FollowUp: models.FollowUpPlan{
			Timing:  "24-48 hours if interested, 1 week if undecided",
			Method:  "Phone call followed by email with details",
			Content: "Personalized game recommendations based on conversation",
		},
	}
}

func openingApproach(segment string) string {
	switch segment {
	case models.SegmentVIP:
		return "Reference their loyalty and offer exclusive opportunities"
	case models.SegmentRegular:
		return "Mention their attendance history and suggest similar games"
	default:
		return "Focus on introducing the experience and building interest"
	}
}

func talkingPoints(matched []models.MatchedEvent) []string {
	points := []string{}
	if len(matched) > 0 {
		points = append(points, fmt.Sprintf("Highlight the %s", matched[0].Event.Title()))
	}
	points = append(points,
		"Emphasize the unique atmosphere and experience",
		"Mention any special promotions or deals",
	)
	return points
}

func predictObjections() []models.Objection {
	return []models.Objection{
		{Objection: "Price concerns", Response: "Emphasize value and payment options"},
		{Objection: "Schedule conflicts", Response: "Offer alternative dates or flexible options"},
	}
}

func suggestOffers(matched []models.MatchedEvent) []models.Offer {
	offers := []models.Offer{}
	for i, m := range matched {
		if i == models.MaxBriefingEvents {
			break
		}
		offers = append(offers, models.Offer{
			EventTitle: m.Event.Title(),
			OfferType:  "Standard discount",
			Urgency:    "Limited time",
		})
	}
	return offers
}

func conversationTone(engagement string) string {
	switch engagement {
	case models.EngagementHigh:
		return "Enthusiastic and knowledgeable"
	case models.EngagementMedium:
		return "Friendly and informative"
	default:
		return "Educational and patient"
	}
}
