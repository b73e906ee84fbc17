package service

import (
	"errors"
	"fmt"
	"time"
)

// Registration gate errors.
var (
	ErrNoOpenPeriod       = errors.New("the time for registration has ended")
	ErrPeriodNotOpenedYet = errors.New("registration period has not been opened yet")
	ErrBatchInProgress    = errors.New("another registration batch is in progress")
)

// NotOpenedError carries the opening time of the next registration period.
type NotOpenedError struct {
	OpensAt time.Time
}

func (e *NotOpenedError) Error() string {
	return fmt.Sprintf("registration period opens at %s", e.OpensAt.Format(time.RFC3339))
}

func (e *NotOpenedError) Unwrap() error { return ErrPeriodNotOpenedYet }

// Catalog administration errors.
var (
	ErrSemesterNotFound     = errors.New("semester not found")
	ErrSubjectNotFound      = errors.New("subject not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrPeriodNotFound       = errors.New("registration period not found")
	ErrAlreadyExists        = errors.New("record already exists")
	ErrInUse                = errors.New("record is still referenced")
	ErrInvalidSchedule      = errors.New("invalid schedule")
	ErrInvalidMainCourse    = errors.New("invalid main course")
	ErrCourseHasPractice    = errors.New("course has practice courses, delete them first")
	ErrInvalidPrerequisite  = errors.New("invalid prerequisite")
	ErrPeriodOverlap        = errors.New("registration period overlaps an existing period")
	ErrInvalidPeriodWindow  = errors.New("open time must be before close time")
	ErrPeriodStartsInPast   = errors.New("open time must be in the future")
	ErrPeriodAlreadyClosed  = errors.New("close time must be in the future")
	ErrInvalidSemesterQuery = errors.New("semester_id is required")
)
