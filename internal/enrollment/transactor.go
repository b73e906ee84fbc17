package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/rs/zerolog"
)

// Transactor turns accepted verdicts into durable registrations. Each unit
// is applied atomically; a unit that loses a race for the last seat is
// downgraded to a rejected verdict.
type Transactor struct {
	store Store
	log   zerolog.Logger
}

func NewTransactor(store Store, log zerolog.Logger) *Transactor {
	return &Transactor{
		store: store,
		log:   logger.Component(log, "enrollment_transactor"),
	}
}

// ApplyEnroll registers the student in every accepted unit of res.
func (t *Transactor) ApplyEnroll(ctx context.Context, studentID int, res *Result) error {
	for _, u := range res.Accepted() {
		err := t.store.Enroll(ctx, studentID, u.IDs())
		if err == nil {
			continue
		}

		var full *CourseFullError
		switch {
		case errors.As(err, &full):
			res.setUnit(u, reject(reasonFull(unitCourse(u, full.CourseID))))
			t.log.Info().Int("student_id", studentID).Int("course_id", full.CourseID).Msg("Seat taken concurrently")
		case errors.Is(err, ErrAlreadyRegistered):
			res.setUnit(u, reject(reasonAlreadyEnrolledCourse(u.Courses[0])))
		default:
			return fmt.Errorf("enroll student %d in %v: %w", studentID, u.IDs(), err)
		}
	}
	return nil
}

// ApplyUnenroll drops every accepted unit of res.
func (t *Transactor) ApplyUnenroll(ctx context.Context, studentID int, res *Result) error {
	for _, u := range res.Accepted() {
		err := t.store.Unenroll(ctx, studentID, u.IDs())
		if err == nil {
			continue
		}
		if errors.Is(err, ErrNotRegistered) {
			res.setUnit(u, reject(reasonNotRegistered(u.Courses[0])))
			continue
		}
		return fmt.Errorf("unenroll student %d from %v: %w", studentID, u.IDs(), err)
	}
	return nil
}
