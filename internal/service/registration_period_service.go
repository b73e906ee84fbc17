package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PeriodStore is the persistence the period service needs.
type PeriodStore interface {
	NextClosingAfter(ctx context.Context, t time.Time) (*model.RegistrationPeriod, error)
	OpenAt(ctx context.Context, t time.Time) (*model.RegistrationPeriod, error)
	GetByID(ctx context.Context, id int) (*model.RegistrationPeriod, error)
	ListOverlapping(ctx context.Context, open, close time.Time, excludeID int) ([]model.RegistrationPeriod, error)
	List(ctx context.Context) ([]model.RegistrationPeriod, error)
	Create(ctx context.Context, p *model.RegistrationPeriod) error
	Update(ctx context.Context, p *model.RegistrationPeriod) error
	Delete(ctx context.Context, id int) error
}

// SemesterLookup resolves semesters by id.
type SemesterLookup interface {
	GetByID(ctx context.Context, id int) (*model.Semester, error)
}

// RegistrationPeriodService gates registration calls on the open period and
// administers periods.
type RegistrationPeriodService struct {
	periods   PeriodStore
	semesters SemesterLookup
	rdb       redis.Cmdable
	cacheTTL  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRegistrationPeriodService creates a new RegistrationPeriodService.
func NewRegistrationPeriodService(periods PeriodStore, semesters SemesterLookup, rdb redis.Cmdable, cacheTTL time.Duration, log zerolog.Logger) *RegistrationPeriodService {
	return &RegistrationPeriodService{
		periods:   periods,
		semesters: semesters,
		rdb:       rdb,
		cacheTTL:  cacheTTL,
		now:       time.Now,
		log:       logger.Component(log, "registration_period_service"),
	}
}

// CurrentPeriod returns the period enroll and unenroll calls run against.
// It fails with ErrNoOpenPeriod when every period has closed and with a
// *NotOpenedError when the next one has not opened yet.
func (s *RegistrationPeriodService) CurrentPeriod(ctx context.Context) (*model.RegistrationPeriod, error) {
	now := s.now()

	p := s.cachedPeriod(ctx, now)
	if p == nil {
		var err error
		p, err = s.periods.NextClosingAfter(ctx, now)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoOpenPeriod
		}
		if err != nil {
			return nil, fmt.Errorf("load current period: %w", err)
		}
		s.cachePeriod(ctx, p)
	}

	if p.OpenTime.After(now) {
		return nil, &NotOpenedError{OpensAt: p.OpenTime}
	}
	return p, nil
}

// cachedPeriod returns the cached period if it is still usable at now.
func (s *RegistrationPeriodService) cachedPeriod(ctx context.Context, now time.Time) *model.RegistrationPeriod {
	raw, err := s.rdb.Get(ctx, config.CacheKey.CurrentRegPeriodKey()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Period cache read failed, falling back to database")
		}
		return nil
	}

	var p model.RegistrationPeriod
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn().Err(err).Msg("Discarding malformed cached period")
		return nil
	}
	if !p.CloseTime.After(now) {
		return nil
	}
	return &p
}

func (s *RegistrationPeriodService) cachePeriod(ctx context.Context, p *model.RegistrationPeriod) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.CurrentRegPeriodKey(), raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Period cache write failed")
	}
}

func (s *RegistrationPeriodService) invalidate(ctx context.Context) {
	if err := s.rdb.Del(ctx, config.CacheKey.CurrentRegPeriodKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Period cache invalidation failed")
	}
}

// OpenPeriodAt returns the period whose window contains t, or nil if none does.
func (s *RegistrationPeriodService) OpenPeriodAt(ctx context.Context, t time.Time) (*model.RegistrationPeriod, error) {
	if p := s.cachedPeriod(ctx, t); p != nil && p.Contains(t) {
		return p, nil
	}
	p, err := s.periods.OpenAt(ctx, t)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open period: %w", err)
	}
	return p, nil
}

// ─── Administration ───

func (s *RegistrationPeriodService) List(ctx context.Context) ([]model.RegistrationPeriod, error) {
	return s.periods.List(ctx)
}

// Create opens a new registration window for a semester.
func (s *RegistrationPeriodService) Create(ctx context.Context, req *model.RegistrationPeriodRequest) (*model.RegistrationPeriod, error) {
	p := &model.RegistrationPeriod{SemesterID: req.SemesterID, OpenTime: req.OpenTime, CloseTime: req.CloseTime}
	if !p.OpenTime.Before(p.CloseTime) {
		return nil, ErrInvalidPeriodWindow
	}
	if !p.OpenTime.After(s.now()) {
		return nil, ErrPeriodStartsInPast
	}
	if err := s.checkPeriod(ctx, p); err != nil {
		return nil, err
	}

	if err := s.periods.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create period: %w", err)
	}
	s.invalidate(ctx)
	s.log.Info().Int("period_id", p.ID).Int("semester_id", p.SemesterID).Msg("Registration period created")
	return p, nil
}

// Update moves an existing window. The close time must still lie ahead.
func (s *RegistrationPeriodService) Update(ctx context.Context, id int, req *model.RegistrationPeriodRequest) (*model.RegistrationPeriod, error) {
	if _, err := s.periods.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("get period: %w", err)
	}

	p := &model.RegistrationPeriod{ID: id, SemesterID: req.SemesterID, OpenTime: req.OpenTime, CloseTime: req.CloseTime}
	if !p.OpenTime.Before(p.CloseTime) {
		return nil, ErrInvalidPeriodWindow
	}
	if !p.CloseTime.After(s.now()) {
		return nil, ErrPeriodAlreadyClosed
	}
	if err := s.checkPeriod(ctx, p); err != nil {
		return nil, err
	}

	if err := s.periods.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("update period: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *RegistrationPeriodService) checkPeriod(ctx context.Context, p *model.RegistrationPeriod) error {
	if _, err := s.semesters.GetByID(ctx, p.SemesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSemesterNotFound
		}
		return fmt.Errorf("get semester: %w", err)
	}
	overlapping, err := s.periods.ListOverlapping(ctx, p.OpenTime, p.CloseTime, p.ID)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return fmt.Errorf("%w: period %d", ErrPeriodOverlap, overlapping[0].ID)
	}
	return nil
}

func (s *RegistrationPeriodService) Delete(ctx context.Context, id int) error {
	if err := s.periods.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPeriodNotFound
		}
		return fmt.Errorf("delete period: %w", err)
	}
	s.invalidate(ctx)
	return nil
}
