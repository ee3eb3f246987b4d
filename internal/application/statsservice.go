package application

import (
	"context"
	"time"

	"github.com/pakin-dev/poold/internal/domain/model"
	"github.com/pakin-dev/poold/internal/domain/port/driven"
)

// StatsService is the read-only face of the engine for dashboards and
// statistics screens. It never writes.
type StatsService struct {
	availability driven.AvailabilityReader
	ledger       driven.AssignmentLedger
	now          func() time.Time
}

// NewStatsService creates a StatsService with the required dependencies.
func NewStatsService(availability driven.AvailabilityReader, ledger driven.AssignmentLedger) *StatsService {
	return &StatsService{
		availability: availability,
		ledger:       ledger,
		now:          time.Now,
	}
}

// CountFree returns the number of free, non-expired slots in one pool.
func (s *StatsService) CountFree(ctx context.Context, platform model.Platform, accountType model.AccountType) (int, error) {
	return s.availability.CountFree(ctx, platform, accountType, s.now().UTC())
}

// AvailabilitySummary returns free-slot counts per pool.
func (s *StatsService) AvailabilitySummary(ctx context.Context) ([]model.PoolAvailability, error) {
	return s.availability.Summary(ctx, s.now().UTC())
}

// AssignmentsByCustomer returns the customer's assignment history.
func (s *StatsService) AssignmentsByCustomer(ctx context.Context, customerIdentifier string) ([]model.Assignment, error) {
	return s.ledger.ListByCustomer(ctx, customerIdentifier)
}

// AssignmentsByDateRange returns assignments created in [from, to).
func (s *StatsService) AssignmentsByDateRange(ctx context.Context, from, to time.Time) ([]model.Assignment, error) {
	return s.ledger.ListByDateRange(ctx, from, to)
}

// AssignmentsByOperator returns assignments recorded by one operator.
func (s *StatsService) AssignmentsByOperator(ctx context.Context, operatorID string) ([]model.Assignment, error) {
	return s.ledger.ListByOperator(ctx, operatorID)
}
