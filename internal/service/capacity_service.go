package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
)

// OpenPeriodFinder returns the period open at a given instant, or nil.
type OpenPeriodFinder interface {
	OpenPeriodAt(ctx context.Context, t time.Time) (*model.RegistrationPeriod, error)
}

// CountStore reads registered counters.
type CountStore interface {
	RegisteredCounts(ctx context.Context, semesterID int) (map[int]int, error)
}

// CapacityService computes seat-count snapshots for the live capacity stream.
type CapacityService struct {
	periods OpenPeriodFinder
	counts  CountStore
}

func NewCapacityService(periods OpenPeriodFinder, counts CountStore) *CapacityService {
	return &CapacityService{periods: periods, counts: counts}
}

// Snapshot returns registered counts for every course of the period open at
// now. It returns nil without error when no period is open.
func (s *CapacityService) Snapshot(ctx context.Context, now time.Time) (*model.CapacitySnapshot, error) {
	period, err := s.periods.OpenPeriodAt(ctx, now)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, nil
	}

	counts, err := s.counts.RegisteredCounts(ctx, period.SemesterID)
	if err != nil {
		return nil, fmt.Errorf("load registered counts: %w", err)
	}
	return &model.CapacitySnapshot{SemesterID: period.SemesterID, Counts: counts, TakenAt: now}, nil
}
