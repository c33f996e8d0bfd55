package scheduler

import "testing"

func TestSchedulerAddCampaign(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron campaign without error
	if err := s.AddCampaign("0 18 * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding campaign, got %v", err)
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddCampaign("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestSchedulerRejectsSixFieldExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// The parser is configured for 5-field expressions only.
	if err := s.AddCampaign("0 0 18 * * *", func() {}); err == nil {
		t.Error("Expected error for 6-field cron expression")
	}
}
