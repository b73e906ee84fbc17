package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/dkhp/registration-backend/internal/enrollment"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudiedCourse is a past registration together with its outcome.
type StudiedCourse struct {
	model.Course
	Passed *bool `json:"passed"`
}

// RegistrationRepository owns the registrations table and the registered
// counters on courses. It is the catalog and store of the enrollment engine.
type RegistrationRepository struct {
	pool     *pgxpool.Pool
	subjects *SubjectRepository
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool, subjects *SubjectRepository) *RegistrationRepository {
	return &RegistrationRepository{pool: pool, subjects: subjects}
}

var (
	_ enrollment.Catalog = (*RegistrationRepository)(nil)
	_ enrollment.Store   = (*RegistrationRepository)(nil)
)

// ─── Reads ───

func (r *RegistrationRepository) CoursesByIDs(ctx context.Context, ids []int) ([]model.Course, error) {
	return queryCourses(ctx, r.pool, selectCourses().Where(squirrel.Eq{"c.id": ids}))
}

func (r *RegistrationRepository) EnrolledCourses(ctx context.Context, studentID, semesterID int) ([]model.Course, error) {
	return queryCourses(ctx, r.pool, selectCourses().
		Join("registrations rg ON rg.course_id = c.id").
		Where(squirrel.Eq{"rg.student_id": studentID, "c.semester_id": semesterID}).
		OrderBy("c.code ASC"))
}

func (r *RegistrationRepository) RegisteredCourses(ctx context.Context, studentID int, ids []int) ([]model.Course, error) {
	return queryCourses(ctx, r.pool, selectCourses().
		Join("registrations rg ON rg.course_id = c.id").
		Where(squirrel.Eq{"rg.student_id": studentID, "c.id": ids}))
}

// StudiedSubjectIDs returns subjects of theory courses the student registered outside the given semester.
func (r *RegistrationRepository) StudiedSubjectIDs(ctx context.Context, studentID, excludeSemesterID int) (map[int]struct{}, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT c.subject_id
		 FROM registrations rg
		 JOIN courses c ON c.id = rg.course_id
		 WHERE rg.student_id = $1 AND c.semester_id <> $2 AND c.main_course_id IS NULL`,
		studentID, excludeSemesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (r *RegistrationRepository) Prerequisites(ctx context.Context, subjectID int) ([]model.PrerequisiteRelation, error) {
	return r.subjects.Prerequisites(ctx, subjectID)
}

// LatestResult returns the outcome of the student's most recent theory
// registration for the subject outside the given semester.
func (r *RegistrationRepository) LatestResult(ctx context.Context, studentID, subjectID, excludeSemesterID int) (*bool, error) {
	var passed *bool
	err := r.pool.QueryRow(ctx,
		`SELECT rg.passed
		 FROM registrations rg
		 JOIN courses c ON c.id = rg.course_id
		 JOIN semesters sm ON sm.id = c.semester_id
		 WHERE rg.student_id = $1 AND c.subject_id = $2 AND c.semester_id <> $3 AND c.main_course_id IS NULL
		 ORDER BY sm.year DESC, sm.semester_num DESC
		 LIMIT 1`,
		studentID, subjectID, excludeSemesterID,
	).Scan(&passed)
	if isNoRows(err) {
		return nil, nil
	}
	return passed, err
}

// EnrolledCourseIDs returns the ids of the student's courses in a semester.
func (r *RegistrationRepository) EnrolledCourseIDs(ctx context.Context, studentID, semesterID int) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rg.course_id
		 FROM registrations rg
		 JOIN courses c ON c.id = rg.course_id
		 WHERE rg.student_id = $1 AND c.semester_id = $2
		 ORDER BY rg.course_id`, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StudiedCourses returns the student's registrations in a semester with their outcomes.
func (r *RegistrationRepository) StudiedCourses(ctx context.Context, studentID, semesterID int) ([]StudiedCourse, error) {
	cols := append(append([]string{}, courseColumns...), "rg.passed")
	sql, args, err := psql.Select(cols...).
		From("courses c").
		Join("subjects s ON s.id = c.subject_id").
		LeftJoin("courses m ON m.id = c.main_course_id").
		Join("registrations rg ON rg.course_id = c.id").
		Where(squirrel.Eq{"rg.student_id": studentID, "c.semester_id": semesterID}).
		OrderBy("c.code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build studied courses query: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	studied := []StudiedCourse{}
	for rows.Next() {
		var passed *bool
		c, err := scanCourse(passedRow{rows, &passed})
		if err != nil {
			return nil, err
		}
		studied = append(studied, StudiedCourse{Course: c, Passed: passed})
	}
	return studied, rows.Err()
}

// passedRow appends the trailing passed column to a course scan.
type passedRow struct {
	pgx.Row
	passed **bool
}

func (p passedRow) Scan(dest ...any) error {
	return p.Row.Scan(append(dest, p.passed)...)
}

// ─── Writes ───

// Enroll registers the student in every course of courseIDs atomically. Row
// locks are taken in id order so concurrent batches never deadlock, and the
// counter only moves while seats remain.
func (r *RegistrationRepository) Enroll(ctx context.Context, studentID int, courseIDs []int) error {
	ids := sortedCopy(courseIDs)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCourses(ctx, tx, ids); err != nil {
			return err
		}
		for _, id := range ids {
			tag, err := tx.Exec(ctx,
				`UPDATE courses SET registered_count = registered_count + 1
				 WHERE id = $1 AND registered_count < total_capacity`, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return &enrollment.CourseFullError{CourseID: id}
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO registrations (student_id, course_id) VALUES ($1, $2)`, studentID, id)
			if isDuplicateKeyError(err) {
				return enrollment.ErrAlreadyRegistered
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Unenroll removes the student's registrations in courseIDs atomically.
func (r *RegistrationRepository) Unenroll(ctx context.Context, studentID int, courseIDs []int) error {
	ids := sortedCopy(courseIDs)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockCourses(ctx, tx, ids); err != nil {
			return err
		}
		for _, id := range ids {
			tag, err := tx.Exec(ctx,
				`DELETE FROM registrations WHERE student_id = $1 AND course_id = $2`, studentID, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return enrollment.ErrNotRegistered
			}
			if _, err := tx.Exec(ctx,
				`UPDATE courses SET registered_count = registered_count - 1
				 WHERE id = $1 AND registered_count > 0`, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func lockCourses(ctx context.Context, tx pgx.Tx, ids []int) error {
	if _, err := tx.Exec(ctx, `SELECT id FROM courses WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids); err != nil {
		return fmt.Errorf("lock courses: %w", err)
	}
	return nil
}

func sortedCopy(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
