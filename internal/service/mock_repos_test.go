package service

import (
	"context"
	"sort"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

// offlineRedis returns a client whose every command fails fast, exercising
// the database fallbacks.
func offlineRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

// ── Mock PeriodStore ──

type mockPeriodRepo struct {
	periods map[int]*model.RegistrationPeriod
	nextID  int
}

func newMockPeriodRepo(periods ...model.RegistrationPeriod) *mockPeriodRepo {
	m := &mockPeriodRepo{periods: make(map[int]*model.RegistrationPeriod)}
	for i := range periods {
		p := periods[i]
		m.periods[p.ID] = &p
		if p.ID >= m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *mockPeriodRepo) sorted() []model.RegistrationPeriod {
	out := make([]model.RegistrationPeriod, 0, len(m.periods))
	for _, p := range m.periods {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}

func (m *mockPeriodRepo) NextClosingAfter(_ context.Context, t time.Time) (*model.RegistrationPeriod, error) {
	for _, p := range m.sorted() {
		if p.CloseTime.After(t) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockPeriodRepo) OpenAt(_ context.Context, t time.Time) (*model.RegistrationPeriod, error) {
	for _, p := range m.sorted() {
		if p.Contains(t) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockPeriodRepo) GetByID(_ context.Context, id int) (*model.RegistrationPeriod, error) {
	if p, ok := m.periods[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockPeriodRepo) ListOverlapping(_ context.Context, open, close time.Time, excludeID int) ([]model.RegistrationPeriod, error) {
	candidate := &model.RegistrationPeriod{OpenTime: open, CloseTime: close}
	var out []model.RegistrationPeriod
	for _, p := range m.sorted() {
		if p.ID != excludeID && p.Overlaps(candidate) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPeriodRepo) List(_ context.Context) ([]model.RegistrationPeriod, error) {
	return m.sorted(), nil
}

func (m *mockPeriodRepo) Create(_ context.Context, p *model.RegistrationPeriod) error {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.periods[p.ID] = &cp
	return nil
}

func (m *mockPeriodRepo) Update(_ context.Context, p *model.RegistrationPeriod) error {
	if _, ok := m.periods[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.periods[p.ID] = &cp
	return nil
}

func (m *mockPeriodRepo) Delete(_ context.Context, id int) error {
	if _, ok := m.periods[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.periods, id)
	return nil
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[int]*model.Semester
	lastFrom  int
}

func newMockSemesterRepo(ids ...int) *mockSemesterRepo {
	m := &mockSemesterRepo{semesters: make(map[int]*model.Semester)}
	for _, id := range ids {
		m.semesters[id] = &model.Semester{ID: id, SemesterNum: 1, Year: 2026}
	}
	return m
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id int) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockSemesterRepo) Create(_ context.Context, s *model.Semester) error {
	for _, existing := range m.semesters {
		if existing.SemesterNum == s.SemesterNum && existing.Year == s.Year {
			return repository.ErrDuplicate
		}
	}
	s.ID = len(m.semesters) + 1
	m.semesters[s.ID] = s
	return nil
}

func (m *mockSemesterRepo) List(_ context.Context, fromYear int) ([]model.Semester, error) {
	m.lastFrom = fromYear
	var out []model.Semester
	for _, s := range m.semesters {
		if s.Year >= fromYear {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSemesterRepo) Delete(_ context.Context, id int) error {
	if _, ok := m.semesters[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.semesters, id)
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[int]*model.Subject
}

func newMockSubjectRepo(subjects ...model.Subject) *mockSubjectRepo {
	m := &mockSubjectRepo{subjects: make(map[int]*model.Subject)}
	for i := range subjects {
		s := subjects[i]
		m.subjects[s.ID] = &s
	}
	return m
}

func (m *mockSubjectRepo) Create(_ context.Context, s *model.Subject) error {
	for _, existing := range m.subjects {
		if existing.Code == s.Code {
			return repository.ErrDuplicate
		}
	}
	s.ID = len(m.subjects) + 100
	m.subjects[s.ID] = s
	return nil
}

func (m *mockSubjectRepo) Update(_ context.Context, s *model.Subject) error {
	if _, ok := m.subjects[s.ID]; !ok {
		return repository.ErrNotFound
	}
	m.subjects[s.ID] = s
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id int) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockSubjectRepo) GetByCode(_ context.Context, code string) (*model.Subject, error) {
	for _, s := range m.subjects {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockSubjectRepo) GetAll(_ context.Context) ([]model.Subject, error) {
	var out []model.Subject
	for _, s := range m.subjects {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockSubjectRepo) ExistingIDs(_ context.Context, ids []int) (map[int]struct{}, error) {
	out := make(map[int]struct{})
	for _, id := range ids {
		if _, ok := m.subjects[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id int) error {
	if _, ok := m.subjects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.subjects, id)
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[int]*model.Course
	counts  map[int]int
}

func newMockCourseRepo(courses ...model.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: make(map[int]*model.Course), counts: make(map[int]int)}
	for i := range courses {
		c := courses[i]
		m.courses[c.ID] = &c
	}
	return m
}

func (m *mockCourseRepo) GetByID(_ context.Context, id int) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCourseRepo) List(_ context.Context, filter model.CourseFilter) ([]model.Course, error) {
	var out []model.Course
	for _, c := range m.courses {
		if filter.SemesterID != nil && c.SemesterID != *filter.SemesterID {
			continue
		}
		if filter.SubjectID != nil && c.SubjectID != *filter.SubjectID {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockCourseRepo) Create(_ context.Context, c *model.Course) error {
	for _, existing := range m.courses {
		if existing.Code == c.Code {
			return repository.ErrDuplicate
		}
	}
	c.ID = len(m.courses) + 1000
	m.courses[c.ID] = c
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id int) error {
	if _, ok := m.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) HasPracticeCourses(_ context.Context, id int) (bool, error) {
	for _, c := range m.courses {
		if c.MainCourseID != nil && *c.MainCourseID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) RegisteredCounts(_ context.Context, semesterID int) (map[int]int, error) {
	out := make(map[int]int)
	for _, c := range m.courses {
		if c.SemesterID == semesterID {
			out[c.ID] = c.RegisteredCount
		}
	}
	return out, nil
}

// ── Fixed period gate ──

type fixedGate struct {
	period *model.RegistrationPeriod
	err    error
}

func (g fixedGate) CurrentPeriod(context.Context) (*model.RegistrationPeriod, error) {
	return g.period, g.err
}
