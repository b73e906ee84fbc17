package enrollment

import (
	"context"

	"github.com/dkhp/registration-backend/internal/model"
)

// Catalog is the read side the engine consults. Implementations must
// populate Course.Subject and Course.MainCourse on every returned course.
type Catalog interface {
	// CoursesByIDs returns the courses that exist among ids, in any order.
	CoursesByIDs(ctx context.Context, ids []int) ([]model.Course, error)
	// EnrolledCourses returns the student's registrations in the given semester.
	EnrolledCourses(ctx context.Context, studentID, semesterID int) ([]model.Course, error)
	// RegisteredCourses returns the courses among ids the student holds a registration for, in any semester.
	RegisteredCourses(ctx context.Context, studentID int, ids []int) ([]model.Course, error)
	// StudiedSubjectIDs returns subjects the student took a theory course of outside the given semester.
	StudiedSubjectIDs(ctx context.Context, studentID, excludeSemesterID int) (map[int]struct{}, error)
	Prerequisites(ctx context.Context, subjectID int) ([]model.PrerequisiteRelation, error)
	// LatestResult returns the pass outcome of the student's most recent
	// registration for the subject outside the given semester. A nil result
	// means no outcome was recorded.
	LatestResult(ctx context.Context, studentID, subjectID, excludeSemesterID int) (*bool, error)
}

// Store applies registration changes. Each call is atomic: either every
// course in courseIDs changes or none does.
type Store interface {
	// Enroll inserts registrations and increments counts. Returns a
	// *CourseFullError when a seat cannot be taken and ErrAlreadyRegistered
	// on a duplicate registration.
	Enroll(ctx context.Context, studentID int, courseIDs []int) error
	// Unenroll deletes registrations and decrements counts. Returns
	// ErrNotRegistered when a registration no longer exists.
	Unenroll(ctx context.Context, studentID int, courseIDs []int) error
}
