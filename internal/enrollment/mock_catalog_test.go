package enrollment

import (
	"context"
	"sync"

	"github.com/dkhp/registration-backend/internal/model"
)

// ── In-memory catalog and store ──

type memRegistration struct {
	studentID int
	courseID  int
	passed    *bool
}

type memCatalog struct {
	mu            sync.Mutex
	subjects      map[int]*model.Subject
	courses       map[int]*model.Course
	registrations []memRegistration
	prereqs       map[int][]model.PrerequisiteRelation
	enrollCalls   int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		subjects: make(map[int]*model.Subject),
		courses:  make(map[int]*model.Course),
		prereqs:  make(map[int][]model.PrerequisiteRelation),
	}
}

func (m *memCatalog) addSubject(id int, code string, practiceCredits int) *model.Subject {
	s := &model.Subject{ID: id, Code: code, Name: code, TheoryCredits: 3, PracticeCredits: practiceCredits}
	m.subjects[id] = s
	return s
}

// addCourse registers an offering; mainID 0 means a theory offering.
func (m *memCatalog) addCourse(id int, code string, subjectID, semesterID, day, begin, end, capacity, mainID int) *model.Course {
	c := &model.Course{
		ID: id, Code: code, SubjectID: subjectID, SemesterID: semesterID,
		DayOfWeek: day, BeginShift: begin, EndShift: end, TotalCapacity: capacity,
	}
	if mainID != 0 {
		c.MainCourseID = &mainID
	}
	m.courses[id] = c
	return c
}

func (m *memCatalog) register(studentID, courseID int, passed *bool) {
	m.registrations = append(m.registrations, memRegistration{studentID: studentID, courseID: courseID, passed: passed})
	m.courses[courseID].RegisteredCount++
}

func (m *memCatalog) requires(subjectID, prereqID int, kind model.PrerequisiteKind) {
	m.prereqs[subjectID] = append(m.prereqs[subjectID], model.PrerequisiteRelation{
		SubjectID:               subjectID,
		PrerequisiteSubjectID:   prereqID,
		PrerequisiteSubjectCode: m.subjects[prereqID].Code,
		Kind:                    kind,
	})
}

func (m *memCatalog) count(courseID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.courses[courseID].RegisteredCount
}

func (m *memCatalog) hydrate(c *model.Course) model.Course {
	out := *c
	out.Subject = m.subjects[c.SubjectID]
	if c.MainCourseID != nil {
		main := *m.courses[*c.MainCourseID]
		out.MainCourse = &main
	}
	return out
}

func (m *memCatalog) isRegistered(studentID, courseID int) bool {
	for _, r := range m.registrations {
		if r.studentID == studentID && r.courseID == courseID {
			return true
		}
	}
	return false
}

func (m *memCatalog) CoursesByIDs(_ context.Context, ids []int) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out = append(out, m.hydrate(c))
		}
	}
	return out, nil
}

func (m *memCatalog) EnrolledCourses(_ context.Context, studentID, semesterID int) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Course
	for _, r := range m.registrations {
		c := m.courses[r.courseID]
		if r.studentID == studentID && c.SemesterID == semesterID {
			out = append(out, m.hydrate(c))
		}
	}
	return out, nil
}

func (m *memCatalog) RegisteredCourses(_ context.Context, studentID int, ids []int) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Course
	for _, id := range ids {
		if m.isRegistered(studentID, id) {
			out = append(out, m.hydrate(m.courses[id]))
		}
	}
	return out, nil
}

func (m *memCatalog) StudiedSubjectIDs(_ context.Context, studentID, excludeSemesterID int) (map[int]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]struct{})
	for _, r := range m.registrations {
		c := m.courses[r.courseID]
		if r.studentID == studentID && c.SemesterID != excludeSemesterID && !c.IsPractice() {
			out[c.SubjectID] = struct{}{}
		}
	}
	return out, nil
}

func (m *memCatalog) Prerequisites(_ context.Context, subjectID int) ([]model.PrerequisiteRelation, error) {
	return m.prereqs[subjectID], nil
}

func (m *memCatalog) LatestResult(_ context.Context, studentID, subjectID, excludeSemesterID int) (*bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *bool
	for _, r := range m.registrations {
		c := m.courses[r.courseID]
		if r.studentID == studentID && c.SubjectID == subjectID && c.SemesterID != excludeSemesterID {
			latest = r.passed
		}
	}
	return latest, nil
}

func (m *memCatalog) Enroll(_ context.Context, studentID int, courseIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollCalls++
	for _, id := range courseIDs {
		if m.isRegistered(studentID, id) {
			return ErrAlreadyRegistered
		}
		if m.courses[id].IsFull() {
			return &CourseFullError{CourseID: id}
		}
	}
	for _, id := range courseIDs {
		m.registrations = append(m.registrations, memRegistration{studentID: studentID, courseID: id})
		m.courses[id].RegisteredCount++
	}
	return nil
}

func (m *memCatalog) Unenroll(_ context.Context, studentID int, courseIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range courseIDs {
		if !m.isRegistered(studentID, id) {
			return ErrNotRegistered
		}
	}
	for _, id := range courseIDs {
		for i, r := range m.registrations {
			if r.studentID == studentID && r.courseID == id {
				m.registrations = append(m.registrations[:i], m.registrations[i+1:]...)
				break
			}
		}
		m.courses[id].RegisteredCount--
	}
	return nil
}
