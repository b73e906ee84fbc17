package enrollment

import (
	"errors"
	"fmt"
)

// Caller errors fail the whole call.
var (
	ErrEmptyBatch        = errors.New("no course ids given")
	ErrDuplicateCourse   = errors.New("course id repeated in batch")
	ErrCourseNotFound    = errors.New("course not found")
	ErrCourseNotEnrolled = errors.New("course not enrolled")
)

// ErrMissingResult means a MUST_HAVE_PASSED prerequisite has no recorded outcome.
var ErrMissingResult = errors.New("registration result missing")

// Store errors.
var (
	ErrAlreadyRegistered = errors.New("registration already exists")
	ErrNotRegistered     = errors.New("registration does not exist")
)

// CourseFullError reports the course whose seat could not be taken.
type CourseFullError struct {
	CourseID int
}

func (e *CourseFullError) Error() string {
	return fmt.Sprintf("course %d is full", e.CourseID)
}
