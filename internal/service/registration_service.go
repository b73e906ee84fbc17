package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/enrollment"
	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// enrollLockTTL bounds how long a crashed request can hold a student's batch lock.
const enrollLockTTL = 15 * time.Second

// releaseLock deletes the lock only if this request still owns it.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PeriodGate resolves the registration period a call runs against.
type PeriodGate interface {
	CurrentPeriod(ctx context.Context) (*model.RegistrationPeriod, error)
}

// HistoryStore reads persisted registration outcomes.
type HistoryStore interface {
	ListByStudent(ctx context.Context, studentID, limit int) ([]model.RegistrationLog, error)
}

// RegistrationService runs enroll and unenroll batches for students.
type RegistrationService struct {
	periods    PeriodGate
	evaluator  *enrollment.Evaluator
	transactor *enrollment.Transactor
	history    HistoryStore
	rdb        redis.Cmdable
	log        zerolog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	periods PeriodGate,
	evaluator *enrollment.Evaluator,
	transactor *enrollment.Transactor,
	history HistoryStore,
	rdb redis.Cmdable,
	log zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		periods:    periods,
		evaluator:  evaluator,
		transactor: transactor,
		history:    history,
		rdb:        rdb,
		log:        logger.Component(log, "registration_service"),
	}
}

// Enroll evaluates and applies an enroll batch, returning a status per course code.
func (s *RegistrationService) Enroll(ctx context.Context, studentID int, courseIDs []int) (map[string]string, error) {
	return s.run(ctx, studentID, courseIDs, model.RegistrationActionEnroll)
}

// Unenroll evaluates and applies an unenroll batch, returning a status per course code.
func (s *RegistrationService) Unenroll(ctx context.Context, studentID int, courseIDs []int) (map[string]string, error) {
	return s.run(ctx, studentID, courseIDs, model.RegistrationActionUnenroll)
}

func (s *RegistrationService) run(ctx context.Context, studentID int, courseIDs []int, action model.RegistrationAction) (map[string]string, error) {
	period, err := s.periods.CurrentPeriod(ctx)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var res *enrollment.Result
	if action == model.RegistrationActionEnroll {
		res, err = s.evaluator.Evaluate(ctx, studentID, courseIDs, period)
		if err == nil {
			err = s.transactor.ApplyEnroll(ctx, studentID, res)
		}
	} else {
		res, err = s.evaluator.PlanUnenroll(ctx, studentID, courseIDs, period)
		if err == nil {
			err = s.transactor.ApplyUnenroll(ctx, studentID, res)
		}
	}
	if err != nil {
		if errors.Is(err, enrollment.ErrMissingResult) {
			s.logFor(ctx).Error().Err(err).Int("student_id", studentID).Msg("Registration data integrity violation")
		}
		return nil, err
	}

	s.audit(ctx, studentID, action, res)
	return res.ByCode(), nil
}

// logFor prefers the request-scoped logger carried by ctx.
func (s *RegistrationService) logFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		sub := l.With().Str("component", "registration_service").Logger()
		return &sub
	}
	return &s.log
}

// lock serializes a student's batches. When Redis is unreachable the batch
// proceeds unlocked: seat accounting is protected by database row locks.
func (s *RegistrationService) lock(ctx context.Context, studentID int) (func(), error) {
	key := config.CacheKey.StudentEnrollLockKey(studentID)
	token := uuid.NewString()

	ok, err := s.rdb.SetNX(ctx, key, token, enrollLockTTL).Result()
	if err != nil {
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Batch lock unavailable, continuing without it")
		return func() {}, nil
	}
	if !ok {
		return nil, ErrBatchInProgress
	}

	return func() {
		if err := releaseLock.Run(context.WithoutCancel(ctx), s.rdb, []string{key}, token).Err(); err != nil {
			s.log.Warn().Err(err).Int("student_id", studentID).Msg("Batch lock release failed")
		}
	}, nil
}

// audit queues one log entry per course outcome for the registration log worker.
func (s *RegistrationService) audit(ctx context.Context, studentID int, action model.RegistrationAction, res *enrollment.Result) {
	now := time.Now()
	entries := make([]interface{}, 0, len(res.Courses))
	for _, c := range res.Courses {
		v := res.Verdicts[c.ID]
		raw, err := json.Marshal(model.RegistrationLog{
			StudentID:  studentID,
			CourseCode: c.Code,
			Action:     action,
			Accepted:   v.Accepted,
			Status:     v.Reason,
			LoggedAt:   now,
		})
		if err != nil {
			continue
		}
		entries = append(entries, raw)
	}
	if len(entries) == 0 {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistRegistrationLogQueue, entries...).Err(); err != nil {
		s.logFor(ctx).Warn().Err(err).Int("student_id", studentID).Int("entries", len(entries)).Msg("Dropped audit entries")
	}
}

// History returns the student's most recent registration outcomes.
func (s *RegistrationService) History(ctx context.Context, studentID, limit int) ([]model.RegistrationLog, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	return s.history.ListByStudent(ctx, studentID, limit)
}
