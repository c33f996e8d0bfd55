package analyst

import (
	"fmt"
	"testing"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

func history(n int) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, n)
	for i := range entries {
		entries[i] = models.HistoryEntry{
			EventID: fmt.Sprintf("g%d", i),
			Title:   fmt.Sprintf("Game %d", i),
			Date:    fmt.Sprintf("2025-%02d-01", 12-(i%12)),
			Rating:  4,
		}
	}
	return entries
}

func teamPrefs(teams ...string) models.PreferenceSet {
	return models.PreferenceSet{FavoriteTeams: teams}
}

func TestSegmentThresholdOrder(t *testing.T) {
	cases := []struct {
		histLen int
		prefs   models.PreferenceSet
		want    string
	}{
		{12, models.PreferenceSet{}, models.SegmentVIP},
		{10, models.PreferenceSet{}, models.SegmentVIP},
		{9, models.PreferenceSet{}, models.SegmentRegular},
		{5, teamPrefs("SF Giants"), models.SegmentRegular}, // history wins over prefs
		{4, models.PreferenceSet{}, models.SegmentOccasional},
		{2, models.PreferenceSet{}, models.SegmentOccasional},
		{1, teamPrefs("SF Giants"), models.SegmentInterested},
		{0, models.PreferenceSet{FavoriteSports: []string{"baseball"}}, models.SegmentInterested},
		{1, models.PreferenceSet{}, models.SegmentNew},
		{0, models.PreferenceSet{}, models.SegmentNew},
	}
	for _, tc := range cases {
		if got := SegmentUser(history(tc.histLen), tc.prefs); got != tc.want {
			t.Errorf("SegmentUser(len=%d, prefs=%v) = %q, want %q", tc.histLen, tc.prefs, got, tc.want)
		}
	}
}

func TestEngagementLevel(t *testing.T) {
	if got := EngagementLevel(nil); got != models.EngagementLow {
		t.Errorf("empty history should be Low, got %s", got)
	}

	ratings := func(rs ...int) []models.HistoryEntry {
		entries := make([]models.HistoryEntry, len(rs))
		for i, r := range rs {
			entries[i] = models.HistoryEntry{Date: "2025-06-01", Rating: r}
		}
		return entries
	}

	if got := EngagementLevel(ratings(5, 5, 4, 5, 4)); got != models.EngagementHigh {
		t.Errorf("avg 4.6 should be High, got %s", got)
	}
	if got := EngagementLevel(ratings(4, 4, 3, 4, 4)); got != models.EngagementMedium {
		t.Errorf("avg 3.8 should be Medium, got %s", got)
	}
	if got := EngagementLevel(ratings(2, 2, 3)); got != models.EngagementLow {
		t.Errorf("avg 2.3 should be Low, got %s", got)
	}

	// Missing ratings default to 3.
	undated := []models.HistoryEntry{{Date: "2025-06-01"}, {Date: "2025-05-01"}}
	if got := EngagementLevel(undated); got != models.EngagementLow {
		t.Errorf("default ratings average 3.0 should be Low, got %s", got)
	}

	// Entries without a date are skipped entirely.
	mixed := append([]models.HistoryEntry{{Rating: 1}}, ratings(5, 5, 5, 5, 5)...)
	if got := EngagementLevel(mixed); got != models.EngagementHigh {
		t.Errorf("undated entry should not drag down the average, got %s", got)
	}
}

func TestEngagementInvariantBeyondFiveMostRecent(t *testing.T) {
	recent := []models.HistoryEntry{
		{Date: "2025-06-05", Rating: 5}, {Date: "2025-06-04", Rating: 5},
		{Date: "2025-06-03", Rating: 5}, {Date: "2025-06-02", Rating: 4},
		{Date: "2025-06-01", Rating: 5},
	}
	base := EngagementLevel(recent)

	older := append(append([]models.HistoryEntry{}, recent...),
		models.HistoryEntry{Date: "2024-01-01", Rating: 1},
		models.HistoryEntry{Date: "2023-01-01", Rating: 1},
		models.HistoryEntry{Date: "2022-01-01", Rating: 1},
	)
	if got := EngagementLevel(older); got != base {
		t.Errorf("entries beyond the 5 most recent changed the result: %s != %s", got, base)
	}
}

func TestSpendingPattern(t *testing.T) {
	empty := SpendingPattern(nil)
	if empty.Pattern != "Unknown" || empty.TypicalTier != "Standard" {
		t.Errorf("empty history should be Unknown/Standard, got %+v", empty)
	}

	tiers := func(ts ...string) []models.HistoryEntry {
		entries := make([]models.HistoryEntry, len(ts))
		for i, tier := range ts {
			entries[i] = models.HistoryEntry{TicketTier: tier}
		}
		return entries
	}

	highValue := SpendingPattern(tiers("VIP Box", "Premium Club", "Standard"))
	if highValue.Pattern != "High-Value" {
		t.Errorf("2/3 premium should be High-Value, got %s", highValue.Pattern)
	}
	if highValue.PremiumShare < 0.66 || highValue.PremiumShare > 0.67 {
		t.Errorf("unexpected premium share %f", highValue.PremiumShare)
	}

	valueConscious := SpendingPattern(tiers("Standard", "Standard", "Standard", "VIP Box"))
	if valueConscious.Pattern != "Value-Conscious" {
		t.Errorf("0.25 premium share should be Value-Conscious, got %s", valueConscious.Pattern)
	}
	if valueConscious.TypicalTier != "Standard" {
		t.Errorf("modal tier should be Standard, got %s", valueConscious.TypicalTier)
	}

	// Modal ties break by first-encountered order.
	tied := SpendingPattern(tiers("Bleachers", "Club", "Bleachers", "Club"))
	if tied.TypicalTier != "Bleachers" {
		t.Errorf("tie should break to first-encountered tier, got %s", tied.TypicalTier)
	}
}

func TestLastActivity(t *testing.T) {
	if got := LastActivity(nil); got.Status != "No prior activity" {
		t.Errorf("empty history needs the explicit marker, got %+v", got)
	}

	entries := []models.HistoryEntry{
		{Title: "Opening Day", Date: "2025-03-28", Rating: 5},
		{Title: "Rivalry Game", Date: "2025-07-12", Rating: 4},
		{Title: "Midweek", Date: "2025-05-02"},
	}
	got := LastActivity(entries)
	if got.Title != "Rivalry Game" || got.Date != "2025-07-12" {
		t.Errorf("expected lexicographically latest date, got %+v", got)
	}
	if got.Rating != 4 {
		t.Errorf("rating should carry through, got %d", got.Rating)
	}
}

func TestRiskFactors(t *testing.T) {
	risks := RiskFactors(nil)
	if len(risks) != 1 || risks[0] != "No purchase history" {
		t.Errorf("empty history should flag no purchase history, got %v", risks)
	}

	unhappy := []models.HistoryEntry{{Rating: 2}, {Rating: 2}, {Rating: 3}, {Rating: 5}}
	risks = RiskFactors(unhappy)
	if len(risks) != 1 || risks[0] != "Recent low satisfaction" {
		t.Errorf("mean 2.3 over 3 most recent should flag low satisfaction, got %v", risks)
	}

	happy := []models.HistoryEntry{{Rating: 4}, {Rating: 5}, {Rating: 4}}
	if risks = RiskFactors(happy); len(risks) != 0 {
		t.Errorf("satisfied history should carry no risks, got %v", risks)
	}
}

func giantsGame() models.CandidateEvent {
	return models.CandidateEvent{
		ID: "g1",
		Properties: map[string]any{
			"title": "SF Giants vs LA Dodgers",
			"sport": "baseball",
		},
		Relevance: 0.9,
	}
}

func TestMatchScoreMonotoneAndBounded(t *testing.T) {
	event := giantsGame()

	a1 := models.UserAnalysis{Segment: models.SegmentOccasional}
	a2 := a1
	a2.PreferredCategories = []string{"Team: SF Giants"}
	a3 := a2
	a3.PreferredCategories = append(a3.PreferredCategories, "Sport: baseball")

	s1 := MatchScore(event, a1)
	s2 := MatchScore(event, a2)
	s3 := MatchScore(event, a3)

	if !(s1 <= s2 && s2 <= s3) {
		t.Errorf("score must be monotone in matching categories: %f, %f, %f", s1, s2, s3)
	}
	for _, s := range []float64{s1, s2, s3} {
		if s < 0 || s > 1 {
			t.Errorf("score out of [0,1]: %f", s)
		}
	}

	// Non-matching categories contribute nothing but never subtract.
	a4 := a1
	a4.PreferredCategories = []string{"Team: NY Yankees"}
	if MatchScore(event, a4) < s1 {
		t.Error("a non-matching category must not decrease the score")
	}

	// Saturation stays capped at 1.0.
	vip := models.UserAnalysis{
		Segment: models.SegmentVIP,
		PreferredCategories: []string{
			"Team: SF Giants", "Team: LA Dodgers", "Sport: baseball", "Sport: baseball",
		},
	}
	if s := MatchScore(event, vip); s > 1 {
		t.Errorf("score must cap at 1.0, got %f", s)
	}
}

func TestMatchReasonsOrderedAndDeduplicated(t *testing.T) {
	analysis := models.UserAnalysis{
		Segment:         models.SegmentVIP,
		EngagementLevel: models.EngagementHigh,
		PreferredCategories: []string{
			"Team: SF Giants", "Sport: baseball", "Team: SF Giants",
		},
	}
	reasons := MatchReasons(giantsGame(), analysis)

	seen := make(map[string]bool)
	for _, r := range reasons {
		if seen[r] {
			t.Errorf("duplicate reason: %q", r)
		}
		seen[r] = true
	}
	if len(reasons) < 2 {
		t.Errorf("expected team and sport reasons, got %v", reasons)
	}
	if reasons[0] != "Features your favorite team: SF Giants" {
		t.Errorf("reasons must preserve preference order, got %v", reasons)
	}

	fallback := MatchReasons(models.CandidateEvent{ID: "x"}, models.UserAnalysis{})
	if len(fallback) != 1 {
		t.Errorf("unmatched event still needs one reason, got %v", fallback)
	}
}

func TestMatchEventsSortedAndCapped(t *testing.T) {
	analysis := models.UserAnalysis{
		Segment:             models.SegmentRegular,
		PreferredCategories: []string{"Team: SF Giants"},
	}

	candidates := []models.CandidateEvent{
		{ID: "plain1", Properties: map[string]any{"title": "Hockey Night"}},
		giantsGame(),
		{ID: "plain2", Properties: map[string]any{"title": "Soccer Cup"}},
		{ID: "plain3", Properties: map[string]any{"title": "Tennis Open"}},
		{ID: "plain4", Properties: map[string]any{"title": "Golf Classic"}},
		{ID: "plain5", Properties: map[string]any{"title": "Marathon"}},
		{ID: "plain6", Properties: map[string]any{"title": "Derby"}},
	}

	matched := MatchEvents(candidates, analysis)
	if len(matched) != models.MaxMatchedEvents {
		t.Fatalf("expected cap of %d, got %d", models.MaxMatchedEvents, len(matched))
	}
	for i := 1; i < len(matched); i++ {
		if matched[i-1].MatchScore < matched[i].MatchScore {
			t.Errorf("matches not sorted descending at %d", i)
		}
	}
	if matched[0].Event.ID != "g1" {
		t.Errorf("best match should be the Giants game, got %s", matched[0].Event.ID)
	}

	// Equal scores keep original candidate order (stable sort).
	if matched[1].Event.ID != "plain1" || matched[2].Event.ID != "plain2" {
		t.Errorf("ties must preserve candidate order, got %s then %s", matched[1].Event.ID, matched[2].Event.ID)
	}

	if got := MatchEvents(nil, analysis); len(got) != 0 {
		t.Errorf("no candidates should yield an empty (non-nil) list, got %v", got)
	}
}

func TestPriorityBuckets(t *testing.T) {
	cases := []struct {
		score float64
		want  models.Priority
	}{
		{0.81, models.PriorityHigh},
		{0.8, models.PriorityMedium},
		{0.61, models.PriorityMedium},
		{0.6, models.PriorityLow},
		{0.1, models.PriorityLow},
	}
	for _, tc := range cases {
		if got := priorityFor(tc.score); got != tc.want {
			t.Errorf("priorityFor(%f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

// Scenario: loyal fan with 12 attended games and no stated preferences.
func TestAnalyzeVIPFan(t *testing.T) {
	analysis := Analyze(models.UserData{History: history(12)})
	if analysis.Segment != models.SegmentVIP {
		t.Errorf("12 games should classify VIP_Fan, got %s", analysis.Segment)
	}

	matched := MatchEvents([]models.CandidateEvent{giantsGame()}, analysis)
	if len(matched) != 1 {
		t.Fatalf("one candidate should produce exactly one match, got %d", len(matched))
	}
	if matched[0].MatchScore > 0.8 && matched[0].Priority != models.PriorityHigh {
		t.Errorf("score %f > 0.8 must be high priority, got %s", matched[0].MatchScore, matched[0].Priority)
	}
}

// Scenario: brand-new prospect with nothing on file.
func TestAnalyzeNewProspect(t *testing.T) {
	analysis := Analyze(models.UserData{})
	if analysis.Segment != models.SegmentNew {
		t.Errorf("expected New_Prospect, got %s", analysis.Segment)
	}
	if len(analysis.RiskFactors) == 0 || analysis.RiskFactors[0] != "No purchase history" {
		t.Errorf("expected no-purchase-history risk, got %v", analysis.RiskFactors)
	}
	if analysis.Spending.Pattern != "Unknown" {
		t.Errorf("expected Unknown spending pattern, got %s", analysis.Spending.Pattern)
	}
	if analysis.LastActivity.Status != "No prior activity" {
		t.Errorf("expected no-prior-activity marker, got %+v", analysis.LastActivity)
	}
}
