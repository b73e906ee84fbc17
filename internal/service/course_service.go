package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/repository"
	"github.com/dkhp/registration-backend/internal/validator"
	"github.com/rs/zerolog"
)

// courseDateLayout is the day/month/year layout of course begin and end dates.
const courseDateLayout = "02/01/2006"

// CourseStore is the persistence the course service needs.
type CourseStore interface {
	GetByID(ctx context.Context, id int) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error)
	Create(ctx context.Context, c *model.Course) error
	Delete(ctx context.Context, id int) error
	HasPracticeCourses(ctx context.Context, id int) (bool, error)
}

// SubjectCodeLookup resolves subjects by code.
type SubjectCodeLookup interface {
	GetByCode(ctx context.Context, code string) (*model.Subject, error)
}

// StudentRegistrations answers per-student registration queries.
type StudentRegistrations interface {
	EnrolledCourseIDs(ctx context.Context, studentID, semesterID int) ([]int, error)
	StudiedCourses(ctx context.Context, studentID, semesterID int) ([]repository.StudiedCourse, error)
}

// CourseService administers course offerings and answers student course queries.
type CourseService struct {
	courses       CourseStore
	subjects      SubjectCodeLookup
	semesters     SemesterLookup
	registrations StudentRegistrations
	periods       PeriodGate
	log           zerolog.Logger
}

func NewCourseService(
	courses CourseStore,
	subjects SubjectCodeLookup,
	semesters SemesterLookup,
	registrations StudentRegistrations,
	periods PeriodGate,
	log zerolog.Logger,
) *CourseService {
	return &CourseService{
		courses:       courses,
		subjects:      subjects,
		semesters:     semesters,
		registrations: registrations,
		periods:       periods,
		log:           logger.Component(log, "course_service"),
	}
}

// ─── Administration ───

func (s *CourseService) List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	return s.courses.List(ctx, filter)
}

func (s *CourseService) GetByID(ctx context.Context, id int) (*model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, ErrCourseNotFound)
	}
	return c, nil
}

// Create adds an offering. The subject is taken from the code prefix, and a
// practice offering must name a theory offering of the same subject as its main course.
func (s *CourseService) Create(ctx context.Context, req *model.CreateCourseRequest) (*model.Course, error) {
	subjectCode, ok := validator.SubjectCodeOf(req.Code)
	if !ok {
		return nil, fmt.Errorf("%w: malformed course code %q", ErrInvalidSchedule, req.Code)
	}
	if req.BeginShift > req.EndShift {
		return nil, fmt.Errorf("%w: begin shift after end shift", ErrInvalidSchedule)
	}
	begin, err := time.Parse(courseDateLayout, req.BeginDate)
	if err != nil {
		return nil, fmt.Errorf("%w: begin_date: %v", ErrInvalidSchedule, err)
	}
	end, err := time.Parse(courseDateLayout, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date: %v", ErrInvalidSchedule, err)
	}
	if begin.After(end) {
		return nil, fmt.Errorf("%w: begin date after end date", ErrInvalidSchedule)
	}

	subject, err := s.subjects.GetByCode(ctx, subjectCode)
	if err != nil {
		return nil, mapStoreError(err, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectCode))
	}
	if _, err := s.semesters.GetByID(ctx, req.SemesterID); err != nil {
		return nil, mapStoreError(err, ErrSemesterNotFound)
	}

	c := &model.Course{
		Code:          req.Code,
		SubjectID:     subject.ID,
		SemesterID:    req.SemesterID,
		DayOfWeek:     req.DayOfWeek,
		BeginShift:    req.BeginShift,
		EndShift:      req.EndShift,
		BeginDate:     &begin,
		EndDate:       &end,
		TotalCapacity: req.TotalCapacity,
		Room:          req.Room,
		LecturerName:  req.LecturerName,
		Language:      req.Language,
	}

	if req.MainCourseCode != "" {
		main, err := s.courses.GetByCode(ctx, req.MainCourseCode)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidMainCourse, req.MainCourseCode)
		}
		if err != nil {
			return nil, fmt.Errorf("get main course: %w", err)
		}
		if main.IsPractice() {
			return nil, fmt.Errorf("%w: %s is not a theory course", ErrInvalidMainCourse, main.Code)
		}
		if main.SubjectID != subject.ID || main.SemesterID != req.SemesterID {
			return nil, fmt.Errorf("%w: %s belongs to another subject or semester", ErrInvalidMainCourse, main.Code)
		}
		c.MainCourseID = &main.ID
	}

	if err := s.courses.Create(ctx, c); err != nil {
		return nil, mapStoreError(err, ErrCourseNotFound)
	}
	c.Subject = subject
	s.log.Info().Int("course_id", c.ID).Str("code", c.Code).Msg("Course created")
	return c, nil
}

// Delete removes an offering. Theory offerings with linked practice offerings are kept.
func (s *CourseService) Delete(ctx context.Context, id int) error {
	hasPractice, err := s.courses.HasPracticeCourses(ctx, id)
	if err != nil {
		return fmt.Errorf("check practice courses: %w", err)
	}
	if hasPractice {
		return ErrCourseHasPractice
	}
	return mapStoreError(s.courses.Delete(ctx, id), ErrCourseNotFound)
}

// ─── Student queries ───

// OpenedCourses lists the offerings of the current registration period's semester.
func (s *CourseService) OpenedCourses(ctx context.Context) ([]model.Course, error) {
	period, err := s.periods.CurrentPeriod(ctx)
	if err != nil {
		return nil, err
	}
	return s.courses.List(ctx, model.CourseFilter{SemesterID: &period.SemesterID})
}

// EnrolledCourseIDs lists the student's course ids in the current registration period.
func (s *CourseService) EnrolledCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	period, err := s.periods.CurrentPeriod(ctx)
	if err != nil {
		return nil, err
	}
	return s.registrations.EnrolledCourseIDs(ctx, studentID, period.SemesterID)
}

// StudiedCourses lists the student's registrations in a semester with outcomes.
func (s *CourseService) StudiedCourses(ctx context.Context, studentID, semesterID int) ([]repository.StudiedCourse, error) {
	if semesterID <= 0 {
		return nil, ErrInvalidSemesterQuery
	}
	return s.registrations.StudiedCourses(ctx, studentID, semesterID)
}
