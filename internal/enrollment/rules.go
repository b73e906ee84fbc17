package enrollment

import (
	"context"
	"fmt"

	"github.com/dkhp/registration-backend/internal/model"
)

// batch is the state shared by the rules while a request is evaluated.
type batch struct {
	studentID  int
	semesterID int
	units      []Unit
	enrolled   []model.Course
	studied    map[int]struct{}
	catalog    Catalog
}

// rule returns a rejection reason, or "" when the unit passes.
type rule func(ctx context.Context, b *batch, u Unit) (string, error)

// enrollRules run in order; the first failing rule decides the verdict.
var enrollRules = []rule{
	checkBatchSchedule,
	checkCapacity,
	checkEnrolled,
	checkPrerequisites,
}

func checkBatchSchedule(_ context.Context, b *batch, u Unit) (string, error) {
	for _, other := range b.units {
		if other.Courses[0].ID == u.Courses[0].ID {
			continue
		}
		if overlaps(u.Courses, other.Courses) {
			return reasonOverlap(u.Courses[0], other.Courses[0]), nil
		}
	}
	return "", nil
}

func checkCapacity(_ context.Context, _ *batch, u Unit) (string, error) {
	for _, c := range u.Courses {
		if c.IsFull() {
			return reasonFull(c), nil
		}
	}
	return "", nil
}

func checkEnrolled(_ context.Context, b *batch, u Unit) (string, error) {
	for i := range b.enrolled {
		e := &b.enrolled[i]
		for _, c := range u.Courses {
			if c.ID == e.ID {
				return reasonAlreadyEnrolledCourse(c), nil
			}
		}
		if overlaps(u.Courses, blocks(e)) {
			return reasonOverlap(u.Courses[0], e), nil
		}
		if e.SubjectID == u.Courses[0].SubjectID {
			return reasonAlreadyEnrolledSubject(e.Subject), nil
		}
	}
	return "", nil
}

func checkPrerequisites(ctx context.Context, b *batch, u Unit) (string, error) {
	rels, err := b.catalog.Prerequisites(ctx, u.Courses[0].SubjectID)
	if err != nil {
		return "", fmt.Errorf("load prerequisites: %w", err)
	}
	for _, rel := range rels {
		if _, ok := b.studied[rel.PrerequisiteSubjectID]; !ok {
			return reasonMustStudy(rel.PrerequisiteSubjectCode), nil
		}
		if rel.Kind != model.PrerequisiteMustHavePassed {
			continue
		}
		passed, err := b.catalog.LatestResult(ctx, b.studentID, rel.PrerequisiteSubjectID, b.semesterID)
		if err != nil {
			return "", fmt.Errorf("load result of subject %s: %w", rel.PrerequisiteSubjectCode, err)
		}
		if passed == nil {
			return "", fmt.Errorf("student %d, subject %s: %w", b.studentID, rel.PrerequisiteSubjectCode, ErrMissingResult)
		}
		if !*passed {
			return reasonMustPass(rel.PrerequisiteSubjectCode), nil
		}
	}
	return "", nil
}
