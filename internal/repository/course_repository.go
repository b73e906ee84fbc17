package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// courseColumns selects a course with its subject and, for practice
// sections, the schedule and seats of the linked theory course.
var courseColumns = []string{
	"c.id", "c.code", "c.subject_id", "c.semester_id", "c.day_of_week", "c.begin_shift", "c.end_shift",
	"c.begin_date", "c.end_date", "c.total_capacity", "c.registered_count",
	"c.room", "c.lecturer_name", "c.language", "c.main_course_id",
	"s.code", "s.name", "s.theory_credits", "s.practice_credits",
	"m.code", "m.semester_id", "m.day_of_week", "m.begin_shift", "m.end_shift", "m.total_capacity", "m.registered_count",
}

func selectCourses() squirrel.SelectBuilder {
	return psql.Select(courseColumns...).
		From("courses c").
		Join("subjects s ON s.id = c.subject_id").
		LeftJoin("courses m ON m.id = c.main_course_id")
}

func scanCourse(row pgx.Row) (model.Course, error) {
	var (
		c    model.Course
		s    model.Subject
		main struct {
			code                                     *string
			semesterID, day, begin, end, total, regs *int
		}
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.SubjectID, &c.SemesterID, &c.DayOfWeek, &c.BeginShift, &c.EndShift,
		&c.BeginDate, &c.EndDate, &c.TotalCapacity, &c.RegisteredCount,
		&c.Room, &c.LecturerName, &c.Language, &c.MainCourseID,
		&s.Code, &s.Name, &s.TheoryCredits, &s.PracticeCredits,
		&main.code, &main.semesterID, &main.day, &main.begin, &main.end, &main.total, &main.regs,
	)
	if err != nil {
		return c, err
	}
	s.ID = c.SubjectID
	c.Subject = &s
	if c.MainCourseID != nil && main.code != nil {
		c.MainCourse = &model.Course{
			ID:              *c.MainCourseID,
			Code:            *main.code,
			SubjectID:       c.SubjectID,
			SemesterID:      *main.semesterID,
			DayOfWeek:       *main.day,
			BeginShift:      *main.begin,
			EndShift:        *main.end,
			TotalCapacity:   *main.total,
			RegisteredCount: *main.regs,
		}
	}
	return c, nil
}

func queryCourses(ctx context.Context, q pgxQuerier, b squirrel.SelectBuilder) ([]model.Course, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course query: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CourseRepository handles course offering data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID retrieves a course with its subject and main course.
func (r *CourseRepository) GetByID(ctx context.Context, id int) (*model.Course, error) {
	return r.getOne(ctx, squirrel.Eq{"c.id": id})
}

// GetByCode retrieves a course by its offering code.
func (r *CourseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	return r.getOne(ctx, squirrel.Eq{"c.code": code})
}

func (r *CourseRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*model.Course, error) {
	courses, err := queryCourses(ctx, r.pool, selectCourses().Where(where).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, ErrNotFound
	}
	return &courses[0], nil
}

// GetByIDs retrieves the courses that exist among ids.
func (r *CourseRepository) GetByIDs(ctx context.Context, ids []int) ([]model.Course, error) {
	return queryCourses(ctx, r.pool, selectCourses().Where(squirrel.Eq{"c.id": ids}))
}

// List returns courses matching filter, ordered by code.
func (r *CourseRepository) List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	b := selectCourses().OrderBy("c.code ASC")
	if filter.SemesterID != nil {
		b = b.Where(squirrel.Eq{"c.semester_id": *filter.SemesterID})
	}
	if filter.SubjectID != nil {
		b = b.Where(squirrel.Eq{"c.subject_id": *filter.SubjectID})
	}
	return queryCourses(ctx, r.pool, b)
}

// Create inserts a new course offering.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	sql, args, err := psql.Insert("courses").
		Columns("code", "subject_id", "semester_id", "day_of_week", "begin_shift", "end_shift",
			"begin_date", "end_date", "total_capacity", "room", "lecturer_name", "language", "main_course_id").
		Values(c.Code, c.SubjectID, c.SemesterID, c.DayOfWeek, c.BeginShift, c.EndShift,
			c.BeginDate, c.EndDate, c.TotalCapacity, c.Room, c.LecturerName, c.Language, c.MainCourseID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create course query: %w", err)
	}
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes a course offering.
func (r *CourseRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrReferenced
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasPracticeCourses reports whether any practice course links to the given theory course.
func (r *CourseRepository) HasPracticeCourses(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE main_course_id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

// RegisteredCounts maps course id to registered count for every course of a semester.
func (r *CourseRepository) RegisteredCounts(ctx context.Context, semesterID int) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, registered_count FROM courses WHERE semester_id = $1`, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// isNoRows reports whether err means a single-row query matched nothing.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
