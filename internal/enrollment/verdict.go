package enrollment

import (
	"fmt"

	"github.com/dkhp/registration-backend/internal/model"
)

const (
	StatusEnrolled   = "Enroll successfully"
	StatusUnenrolled = "Unenroll successfully"
)

// Verdict is the outcome for one requested course.
type Verdict struct {
	Accepted bool
	Reason   string
}

func accept(status string) Verdict { return Verdict{Accepted: true, Reason: status} }
func reject(reason string) Verdict { return Verdict{Reason: reason} }

// Unit is a set of offerings decided together: a lone course, or a practice
// offering with its theory offering.
type Unit struct {
	Subject *model.Subject
	Courses []*model.Course
}

// IDs returns the course ids of the unit in ascending order.
func (u Unit) IDs() []int {
	ids := make([]int, 0, len(u.Courses))
	for _, c := range u.Courses {
		ids = append(ids, c.ID)
	}
	if len(ids) == 2 && ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return ids
}

// Result holds per-course verdicts for one batch, in request order.
type Result struct {
	Courses  []*model.Course
	Verdicts map[int]Verdict
	Units    []Unit
}

// unitCourse finds the course with id in u, falling back to the anchor.
func unitCourse(u Unit, id int) *model.Course {
	for _, c := range u.Courses {
		if c.ID == id {
			return c
		}
	}
	return u.Courses[0]
}

func newResult(courses []*model.Course) *Result {
	return &Result{Courses: courses, Verdicts: make(map[int]Verdict, len(courses))}
}

func (r *Result) setUnit(u Unit, v Verdict) {
	for _, c := range u.Courses {
		r.Verdicts[c.ID] = v
	}
}

// Accepted returns the units whose courses are all accepted.
func (r *Result) Accepted() []Unit {
	out := make([]Unit, 0, len(r.Units))
	for _, u := range r.Units {
		if r.Verdicts[u.Courses[0].ID].Accepted {
			out = append(out, u)
		}
	}
	return out
}

// ByCode returns the status string of every course keyed by course code.
func (r *Result) ByCode() map[string]string {
	out := make(map[string]string, len(r.Courses))
	for _, c := range r.Courses {
		out[c.Code] = r.Verdicts[c.ID].Reason
	}
	return out
}

func subjectCode(s *model.Subject) string {
	if s == nil {
		return ""
	}
	return s.Code
}

func reasonOnlyOneTheory(s *model.Subject) string {
	return fmt.Sprintf("You can only enroll one theory course for subject %s", subjectCode(s))
}

func reasonPairRequired(s *model.Subject) string {
	return fmt.Sprintf("You must enroll one theory course associated with one practice course for subject %s", subjectCode(s))
}

func reasonNotInPeriod(c *model.Course) string {
	return fmt.Sprintf("The course %s is not opened in the current registration period", c.Code)
}

func reasonOverlap(a, b *model.Course) string {
	return fmt.Sprintf("Course %s overlaps the schedule with the course %s", a.Code, b.Code)
}

func reasonFull(c *model.Course) string {
	return fmt.Sprintf("The course %s is full now", c.Code)
}

func reasonAlreadyEnrolledCourse(c *model.Course) string {
	return fmt.Sprintf("You have already enrolled the course %s", c.Code)
}

func reasonAlreadyEnrolledSubject(s *model.Subject) string {
	return fmt.Sprintf("You have already enrolled in subject %s", subjectCode(s))
}

func reasonMustStudy(code string) string {
	return fmt.Sprintf("You need to learn subject %s ahead", code)
}

func reasonMustPass(code string) string {
	return fmt.Sprintf("You need to pass the subject %s ahead", code)
}

func reasonPastSemester() string {
	return "Can not unenroll courses that were registered in previous semesters"
}

func reasonUnenrollPair(s *model.Subject) string {
	return fmt.Sprintf("You need to unenroll both theory and practice courses for the subject %s at the same time", subjectCode(s))
}

func reasonNotRegistered(c *model.Course) string {
	return fmt.Sprintf("You have not enrolled the course %s", c.Code)
}
