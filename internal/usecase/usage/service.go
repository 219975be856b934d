// Package usage reports embedding token budget state for the usage endpoint.
package usage

import (
	"context"
	"time"

	"github.com/kailas-cloud/knowbase/internal/usecase/quota"
)

// Report is the usage endpoint payload: the budget snapshot plus the UTC
// instants at which the daily and monthly windows roll over.
type Report struct {
	Budget          quota.Snapshot
	DailyResetsAt   time.Time
	MonthlyResetsAt time.Time
}

// Service handles usage reporting.
type Service struct {
	bv BudgetViewer
}

// New creates a Service. bv can be nil (unlimited mode).
func New(bv BudgetViewer) *Service {
	return &Service{bv: bv}
}

// GetReport builds the current usage report.
func (s *Service) GetReport(_ context.Context) Report {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var snap quota.Snapshot
	if s.bv != nil {
		snap = s.bv.View()
	} else {
		snap = quota.Snapshot{DailyRemaining: -1, MonthlyRemaining: -1}
	}

	return Report{
		Budget:          snap,
		DailyResetsAt:   dayStart.Add(24 * time.Hour),
		MonthlyResetsAt: monthStart.AddDate(0, 1, 0),
	}
}
