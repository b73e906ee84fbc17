package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
	"github.com/rs/zerolog"
)

func intPtr(v int) *int { return &v }

func TestSubjectService_Create(t *testing.T) {
	repo := newMockSubjectRepo(model.Subject{ID: 1, Code: "IT001", Name: "Intro"})
	svc := NewSubjectService(repo, zerolog.Nop())
	ctx := context.Background()

	sub, err := svc.Create(ctx, &model.CreateSubjectRequest{
		Code: "IT002", Name: "Programming", TheoryCredits: 3, PracticeCredits: 1,
		Prerequisites: []model.PrerequisiteInput{{SubjectID: 1, Kind: model.PrerequisiteMustHavePassed}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sub.Prerequisites) != 1 || sub.Prerequisites[0].Kind != model.PrerequisiteMustHavePassed {
		t.Errorf("unexpected prerequisites %+v", sub.Prerequisites)
	}

	_, err = svc.Create(ctx, &model.CreateSubjectRequest{
		Code: "IT003", Name: "Networks",
		Prerequisites: []model.PrerequisiteInput{{SubjectID: 77, Kind: model.PrerequisiteMustHaveStudied}},
	})
	if !errors.Is(err, ErrInvalidPrerequisite) {
		t.Errorf("unknown prerequisite: expected ErrInvalidPrerequisite, got %v", err)
	}

	_, err = svc.Create(ctx, &model.CreateSubjectRequest{Code: "IT001", Name: "Again"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate code: expected ErrAlreadyExists, got %v", err)
	}
}

func TestSubjectService_Update_RejectsSelfPrerequisite(t *testing.T) {
	repo := newMockSubjectRepo(model.Subject{ID: 1, Code: "IT001", Name: "Intro"})
	svc := NewSubjectService(repo, zerolog.Nop())

	_, err := svc.Update(context.Background(), 1, &model.UpdateSubjectRequest{
		Code: "IT001", Name: "Intro",
		Prerequisites: []model.PrerequisiteInput{{SubjectID: 1, Kind: model.PrerequisiteMustHaveStudied}},
	})
	if !errors.Is(err, ErrInvalidPrerequisite) {
		t.Errorf("expected ErrInvalidPrerequisite, got %v", err)
	}
}

func newCourseFixture() (*CourseService, *mockCourseRepo) {
	subjects := newMockSubjectRepo(
		model.Subject{ID: 1, Code: "IT001", PracticeCredits: 1},
		model.Subject{ID: 2, Code: "MA001"},
	)
	courses := newMockCourseRepo(
		model.Course{ID: 1, Code: "IT001.O1", SubjectID: 1, SemesterID: 1},
		model.Course{ID: 2, Code: "IT001.O1.1", SubjectID: 1, SemesterID: 1, MainCourseID: intPtr(1)},
		model.Course{ID: 3, Code: "MA001.O1", SubjectID: 2, SemesterID: 1},
	)
	period := &model.RegistrationPeriod{ID: 1, SemesterID: 1}
	svc := NewCourseService(courses, subjects, newMockSemesterRepo(1), nil, fixedGate{period: period}, zerolog.Nop())
	return svc, courses
}

func courseRequest(code, main string) *model.CreateCourseRequest {
	return &model.CreateCourseRequest{
		Code: code, SemesterID: 1, DayOfWeek: 3, BeginShift: 1, EndShift: 3,
		BeginDate: "05/09/2026", EndDate: "20/12/2026", TotalCapacity: 60, MainCourseCode: main,
	}
}

func TestCourseService_Create(t *testing.T) {
	svc, _ := newCourseFixture()
	ctx := context.Background()

	c, err := svc.Create(ctx, courseRequest("IT001.O2.1", "IT001.O1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.SubjectID != 1 || c.MainCourseID == nil || *c.MainCourseID != 1 {
		t.Errorf("unexpected course %+v", c)
	}

	tests := []struct {
		name string
		req  *model.CreateCourseRequest
		want error
	}{
		{"main is practice", courseRequest("IT001.O3.1", "IT001.O1.1"), ErrInvalidMainCourse},
		{"main of another subject", courseRequest("IT001.O4.1", "MA001.O1"), ErrInvalidMainCourse},
		{"main missing", courseRequest("IT001.O5.1", "IT001.O9"), ErrInvalidMainCourse},
		{"unknown subject", courseRequest("CS999.O1", ""), ErrSubjectNotFound},
		{"duplicate code", courseRequest("MA001.O1", ""), ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	bad := courseRequest("MA001.O2", "")
	bad.BeginShift, bad.EndShift = 5, 2
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("inverted shifts: expected ErrInvalidSchedule, got %v", err)
	}
	bad = courseRequest("MA001.O3", "")
	bad.BeginDate, bad.EndDate = "20/12/2026", "05/09/2026"
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("inverted dates: expected ErrInvalidSchedule, got %v", err)
	}
}

func TestCourseService_Delete(t *testing.T) {
	svc, repo := newCourseFixture()
	ctx := context.Background()

	if err := svc.Delete(ctx, 1); !errors.Is(err, ErrCourseHasPractice) {
		t.Errorf("expected ErrCourseHasPractice, got %v", err)
	}
	if err := svc.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete practice: %v", err)
	}
	if err := svc.Delete(ctx, 1); err != nil {
		t.Errorf("Delete theory after practice: %v", err)
	}
	if len(repo.courses) != 1 {
		t.Errorf("expected one course left, got %d", len(repo.courses))
	}
	if err := svc.Delete(ctx, 99); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestCourseService_OpenedCourses(t *testing.T) {
	svc, repo := newCourseFixture()
	repo.courses[9] = &model.Course{ID: 9, Code: "IT001.O7", SubjectID: 1, SemesterID: 2}

	courses, err := svc.OpenedCourses(context.Background())
	if err != nil {
		t.Fatalf("OpenedCourses: %v", err)
	}
	if len(courses) != 3 {
		t.Errorf("expected 3 courses of semester 1, got %d", len(courses))
	}
	if courses[0].Code != "IT001.O1" {
		t.Errorf("expected ordering by code, got %s first", courses[0].Code)
	}
}

func TestSemesterService_ListLatest(t *testing.T) {
	repo := newMockSemesterRepo()
	svc := NewSemesterService(repo)
	svc.now = func() time.Time { return time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC) }

	if _, err := svc.ListLatest(context.Background()); err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	if repo.lastFrom != 2027 {
		t.Errorf("expected lower bound 2027, got %d", repo.lastFrom)
	}
	if _, err := svc.Create(context.Background(), &model.CreateSemesterRequest{SemesterNum: 1, Year: 2027}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), &model.CreateSemesterRequest{SemesterNum: 1, Year: 2027}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

type stubFinder struct{ period *model.RegistrationPeriod }

func (s stubFinder) OpenPeriodAt(context.Context, time.Time) (*model.RegistrationPeriod, error) {
	return s.period, nil
}

func TestCapacityService_Snapshot(t *testing.T) {
	courses := newMockCourseRepo(
		model.Course{ID: 1, SemesterID: 4, RegisteredCount: 12},
		model.Course{ID: 2, SemesterID: 4, RegisteredCount: 3},
		model.Course{ID: 3, SemesterID: 5, RegisteredCount: 9},
	)
	now := time.Now()

	snap, err := NewCapacityService(stubFinder{}, courses).Snapshot(context.Background(), now)
	if err != nil || snap != nil {
		t.Errorf("expected no snapshot without open period, got %v, %v", snap, err)
	}

	snap, err = NewCapacityService(stubFinder{&model.RegistrationPeriod{SemesterID: 4}}, courses).Snapshot(context.Background(), now)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Counts) != 2 || snap.Counts[1] != 12 || snap.Counts[2] != 3 {
		t.Errorf("unexpected counts %v", snap.Counts)
	}
}
