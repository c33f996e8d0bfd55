// Package scheduler runs recurring call campaigns.
//
// Campaigns (such as a nightly batch of outbound sales calls) are scheduled
// with cron expressions; a panicking campaign never takes the scheduler down.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based campaign scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddCampaign schedules a recurring campaign using the provided cron
// expression. It returns an error if the expression is invalid.
func (s *Scheduler) AddCampaign(expr string, campaign func()) error {
	if _, err := s.cron.AddFunc(expr, campaign); err != nil {
		return err
	}
	slog.Info("Scheduler.AddCampaign: campaign scheduled", "cron", expr)
	return nil
}

// Stop stops the cron scheduler and waits for running campaigns to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
