// Package analyst implements the deterministic scoring and segmentation
// engine for sales calls.
//
// Every function in this file is a pure function of its inputs: segment
// labels, engagement levels, spending patterns and match scores never depend
// on hidden state, which keeps each rule independently testable.
package analyst

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// defaultRating substitutes for entries with no recorded satisfaction.
const defaultRating = 3

// Segment thresholds, evaluated strictly in order: first matching branch wins.
func SegmentUser(history []models.HistoryEntry, prefs models.PreferenceSet) string {
	switch {
	case len(history) >= 10:
		return models.SegmentVIP
	case len(history) >= 5:
		return models.SegmentRegular
	case len(history) >= 2:
		return models.SegmentOccasional
	case !prefs.Empty():
		return models.SegmentInterested
	default:
		return models.SegmentNew
	}
}

// EngagementLevel averages the satisfaction ratings of the 5 most recent
// entries that carry an attendance date. Missing ratings count as the
// default. Entries beyond the 5 most recent never affect the result.
func EngagementLevel(history []models.HistoryEntry) string {
	recent := make([]models.HistoryEntry, 0, 5)
	for _, h := range history {
		if h.Date == "" {
			continue
		}
		recent = append(recent, h)
		if len(recent) == 5 {
			break
		}
	}
	if len(recent) == 0 {
		return models.EngagementLow
	}

	sum := 0
	for _, h := range recent {
		sum += ratingOrDefault(h.Rating)
	}
	avg := float64(sum) / float64(len(recent))

	switch {
	case avg >= 4.5:
		return models.EngagementHigh
	case avg >= 3.5:
		return models.EngagementMedium
	default:
		return models.EngagementLow
	}
}

// SpendingPattern reports the premium-tier share, the modal ticket tier
// (ties broken by first-encountered order), and the derived pattern label.
func SpendingPattern(history []models.HistoryEntry) models.SpendingPattern {
	if len(history) == 0 {
		return models.SpendingPattern{Pattern: "Unknown", TypicalTier: "Standard"}
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(history))
	premium := 0
	for _, h := range history {
		tier := h.TicketTier
		if tier == "" {
			tier = "Standard"
		}
		if _, seen := counts[tier]; !seen {
			order = append(order, tier)
		}
		counts[tier]++
		if strings.Contains(tier, "Premium") || strings.Contains(tier, "VIP") {
			premium++
		}
	}

	modal := order[0]
	for _, tier := range order {
		if counts[tier] > counts[modal] {
			modal = tier
		}
	}

	share := float64(premium) / float64(len(history))
	pattern := "Value-Conscious"
	if share > 0.3 {
		pattern = "High-Value"
	}
	return models.SpendingPattern{Pattern: pattern, TypicalTier: modal, PremiumShare: share}
}

// LastActivity picks the entry with the lexicographically maximal date
// string. Dates in the graph schema are YYYY-MM-DD, where string order
// equals calendar order; other formats would sort incorrectly here.
func LastActivity(history []models.HistoryEntry) models.LastActivity {
	if len(history) == 0 {
		return models.LastActivity{Status: "No prior activity"}
	}
	latest := history[0]
	for _, h := range history[1:] {
		if h.Date > latest.Date {
			latest = h
		}
	}
	return models.LastActivity{
		Title:  latest.Title,
		Date:   latest.Date,
		Rating: ratingOrDefault(latest.Rating),
	}
}

// RiskFactors flags conditions that make the sale harder.
func RiskFactors(history []models.HistoryEntry) []string {
	risks := []string{}
	if len(history) == 0 {
		risks = append(risks, "No purchase history")
		return risks
	}

	recent := history
	if len(recent) > 3 {
		recent = recent[:3]
	}
	sum := 0
	for _, h := range recent {
		sum += ratingOrDefault(h.Rating)
	}
	if float64(sum)/float64(len(recent)) < 3 {
		risks = append(risks, "Recent low satisfaction")
	}
	return risks
}

// PreferredCategories renders explicit preferences as category labels in
// input order: teams first, then sports.
func PreferredCategories(prefs models.PreferenceSet) []string {
	categories := make([]string, 0, len(prefs.FavoriteTeams)+len(prefs.FavoriteSports))
	for _, team := range prefs.FavoriteTeams {
		categories = append(categories, "Team: "+team)
	}
	for _, sport := range prefs.FavoriteSports {
		categories = append(categories, "Sport: "+sport)
	}
	return categories
}

// ContactPreferences derives how to reach the user. The graph profile does
// not yet carry channel data, so these are the house defaults.
func ContactPreferences(profile models.UserProfile) models.ContactPreferences {
	return models.ContactPreferences{Method: "phone", Time: "evening", Tone: "friendly"}
}

// Analyze computes the full derived snapshot for one user.
func Analyze(data models.UserData) models.UserAnalysis {
	return models.UserAnalysis{
		Segment:             SegmentUser(data.History, data.Preferences),
		EngagementLevel:     EngagementLevel(data.History),
		PreferredCategories: PreferredCategories(data.Preferences),
		Spending:            SpendingPattern(data.History),
		LastActivity:        LastActivity(data.History),
		Contact:             ContactPreferences(data.Profile),
		RiskFactors:         RiskFactors(data.History),
	}
}

// Match-score weights. The score is a baseline plus bounded bonuses, capped
// at 1.0; adding a matching preference category never decreases it.
const (
	baseScore        = 0.5
	categoryBonus    = 0.1
	maxCategoryBonus = 0.3
	relevanceWeight  = 0.05
)

// segmentPropensity maps a segment to its purchase-propensity bonus.
func segmentPropensity(segment string) float64 {
	switch segment {
	case models.SegmentVIP:
		return 0.15
	case models.SegmentRegular:
		return 0.1
	case models.SegmentOccasional, models.SegmentInterested:
		return 0.05
	default:
		return 0
	}
}

// MatchScore rates how well an event fits a user analysis, in [0,1].
func MatchScore(event models.CandidateEvent, analysis models.UserAnalysis) float64 {
	overlap := categoryBonus * float64(len(matchingCategories(event, analysis)))
	if overlap > maxCategoryBonus {
		overlap = maxCategoryBonus
	}
	score := baseScore + overlap + segmentPropensity(analysis.Segment) + relevanceWeight*clamp01(event.Relevance)
	return clamp01(score)
}

// matchingCategories returns the preferred categories the event satisfies,
// preserving preference order.
func matchingCategories(event models.CandidateEvent, analysis models.UserAnalysis) []string {
	haystack := strings.ToLower(event.Title())
	for _, key := range []string{"home_team", "away_team", "teams", "sport", "description"} {
		switch v := event.Properties[key].(type) {
		case string:
			haystack += " " + strings.ToLower(v)
		case []string:
			haystack += " " + strings.ToLower(strings.Join(v, " "))
		}
	}

	matched := []string{}
	for _, cat := range analysis.PreferredCategories {
		_, name, ok := splitCategory(cat)
		if !ok {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(name)) {
			matched = append(matched, cat)
		}
	}
	return matched
}

// splitCategory parses a "Team: X" / "Sport: Y" label.
func splitCategory(cat string) (kind, name string, ok bool) {
	kind, name, found := strings.Cut(cat, ": ")
	if !found || name == "" {
		return "", "", false
	}
	return kind, name, true
}

// MatchReasons produces ordered, de-duplicated human-readable justifications
// for one matched event.
func MatchReasons(event models.CandidateEvent, analysis models.UserAnalysis) []string {
	reasons := []string{}
	seen := make(map[string]bool)
	add := func(r string) {
		if !seen[r] {
			seen[r] = true
			reasons = append(reasons, r)
		}
	}

	for _, cat := range matchingCategories(event, analysis) {
		kind, name, _ := splitCategory(cat)
		switch kind {
		case "Team":
			add(fmt.Sprintf("Features your favorite team: %s", name))
		case "Sport":
			add(fmt.Sprintf("Matches your favorite sport: %s", name))
		}
	}
	if analysis.EngagementLevel == models.EngagementHigh {
		add("Similar to games you've enjoyed before")
	}
	if len(reasons) == 0 {
		add("Popular upcoming game")
	}
	return reasons
}

// priorityFor buckets a score: >0.8 high, >0.6 medium, else low.
func priorityFor(score float64) models.Priority {
	switch {
	case score > 0.8:
		return models.PriorityHigh
	case score > 0.6:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// MatchEvents scores every candidate, sorts descending by score with ties
// broken by original candidate order, and caps the list at MaxMatchedEvents.
func MatchEvents(candidates []models.CandidateEvent, analysis models.UserAnalysis) []models.MatchedEvent {
	matched := make([]models.MatchedEvent, 0, len(candidates))
	for _, c := range candidates {
		score := MatchScore(c, analysis)
		matched = append(matched, models.MatchedEvent{
			Event:      c,
			MatchScore: score,
			Reasons:    MatchReasons(c, analysis),
			Priority:   priorityFor(score),
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].MatchScore > matched[j].MatchScore
	})
	if len(matched) > models.MaxMatchedEvents {
		matched = matched[:models.MaxMatchedEvents]
	}
	return matched
}

func ratingOrDefault(r int) int {
	if r == 0 {
		return defaultRating
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
