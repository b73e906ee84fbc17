package enrollment

import (
	"context"
	"fmt"

	"github.com/dkhp/registration-backend/internal/model"
)

// Evaluator decides, per requested course, whether a batch change may go ahead.
// It only reads from the catalog and is safe for concurrent use.
type Evaluator struct {
	catalog Catalog
}

func NewEvaluator(catalog Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate produces enroll verdicts for courseIDs against the open period.
// Business-rule failures become rejected verdicts; only caller and
// data-integrity problems are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, studentID int, courseIDs []int, period *model.RegistrationPeriod) (*Result, error) {
	if err := checkBatchIDs(courseIDs); err != nil {
		return nil, err
	}

	found, err := e.catalog.CoursesByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	courses, err := inRequestOrder(courseIDs, found, ErrCourseNotFound)
	if err != nil {
		return nil, err
	}

	res := newResult(courses)
	offered := make([]*model.Course, 0, len(courses))
	for _, c := range courses {
		if c.SemesterID != period.SemesterID {
			res.Verdicts[c.ID] = reject(reasonNotInPeriod(c))
			continue
		}
		offered = append(offered, c)
	}

	for _, g := range groupBySubject(offered) {
		u, reason := enrollUnit(g)
		if reason != "" {
			for _, c := range g {
				res.Verdicts[c.ID] = reject(reason)
			}
			continue
		}
		res.Units = append(res.Units, u)
	}
	if len(res.Units) == 0 {
		return res, nil
	}

	b := &batch{
		studentID:  studentID,
		semesterID: period.SemesterID,
		units:      res.Units,
		catalog:    e.catalog,
	}
	if b.enrolled, err = e.catalog.EnrolledCourses(ctx, studentID, period.SemesterID); err != nil {
		return nil, fmt.Errorf("load enrolled courses: %w", err)
	}
	if b.studied, err = e.catalog.StudiedSubjectIDs(ctx, studentID, period.SemesterID); err != nil {
		return nil, fmt.Errorf("load studied subjects: %w", err)
	}

	for _, u := range res.Units {
		reason, err := firstFailure(ctx, b, u)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			res.setUnit(u, reject(reason))
		} else {
			res.setUnit(u, accept(StatusEnrolled))
		}
	}
	return res, nil
}

func firstFailure(ctx context.Context, b *batch, u Unit) (string, error) {
	for _, r := range enrollRules {
		reason, err := r(ctx, b, u)
		if err != nil || reason != "" {
			return reason, err
		}
	}
	return "", nil
}

// PlanUnenroll decides which requested registrations may be dropped.
func (e *Evaluator) PlanUnenroll(ctx context.Context, studentID int, courseIDs []int, period *model.RegistrationPeriod) (*Result, error) {
	if err := checkBatchIDs(courseIDs); err != nil {
		return nil, err
	}

	found, err := e.catalog.RegisteredCourses(ctx, studentID, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load registered courses: %w", err)
	}
	courses, err := inRequestOrder(courseIDs, found, ErrCourseNotEnrolled)
	if err != nil {
		return nil, err
	}

	res := newResult(courses)
	current := make([]*model.Course, 0, len(courses))
	for _, c := range courses {
		if c.SemesterID != period.SemesterID {
			res.Verdicts[c.ID] = reject(reasonPastSemester())
			continue
		}
		current = append(current, c)
	}

	for _, g := range groupBySubject(current) {
		s := g[0].Subject
		if s == nil || !s.RequiresPractice() {
			for _, c := range g {
				u := Unit{Subject: s, Courses: []*model.Course{c}}
				res.Units = append(res.Units, u)
				res.setUnit(u, accept(StatusUnenrolled))
			}
			continue
		}
		// Drop a theory course and its own practice course together or not at all.
		pair, ok := linkedPair(g)
		if !ok {
			for _, c := range g {
				res.Verdicts[c.ID] = reject(reasonUnenrollPair(s))
			}
			continue
		}
		u := Unit{Subject: s, Courses: pair}
		res.Units = append(res.Units, u)
		res.setUnit(u, accept(StatusUnenrolled))
	}
	return res, nil
}

func checkBatchIDs(ids []int) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("course id %d: %w", id, ErrDuplicateCourse)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// inRequestOrder orders found by ids and fails with missing for the first absent id.
func inRequestOrder(ids []int, found []model.Course, missing error) ([]*model.Course, error) {
	byID := make(map[int]*model.Course, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	out := make([]*model.Course, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("course id %d: %w", id, missing)
		}
		out = append(out, c)
	}
	return out, nil
}

// groupBySubject partitions courses by subject, keeping first-seen order.
func groupBySubject(courses []*model.Course) [][]*model.Course {
	index := make(map[int]int)
	var groups [][]*model.Course
	for _, c := range courses {
		i, ok := index[c.SubjectID]
		if !ok {
			i = len(groups)
			index[c.SubjectID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// enrollUnit validates the shape of one subject group.
func enrollUnit(g []*model.Course) (Unit, string) {
	s := g[0].Subject
	if s == nil || !s.RequiresPractice() {
		if len(g) > 1 {
			return Unit{}, reasonOnlyOneTheory(s)
		}
		return Unit{Subject: s, Courses: g}, ""
	}
	if pair, ok := linkedPair(g); ok {
		return Unit{Subject: s, Courses: pair}, ""
	}
	return Unit{}, reasonPairRequired(s)
}

// linkedPair reports whether g is exactly a practice course and the theory
// course it points at, returned practice first.
func linkedPair(g []*model.Course) ([]*model.Course, bool) {
	if len(g) != 2 {
		return nil, false
	}
	a, b := g[0], g[1]
	switch {
	case a.MainCourseID != nil && *a.MainCourseID == b.ID && !b.IsPractice():
		a.MainCourse = b
		return []*model.Course{a, b}, true
	case b.MainCourseID != nil && *b.MainCourseID == a.ID && !a.IsPractice():
		b.MainCourse = a
		return []*model.Course{b, a}, true
	}
	return nil, false
}
