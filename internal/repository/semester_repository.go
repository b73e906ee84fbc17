package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SemesterRepository handles semester data access.
type SemesterRepository struct {
	pool *pgxpool.Pool
}

func NewSemesterRepository(pool *pgxpool.Pool) *SemesterRepository {
	return &SemesterRepository{pool: pool}
}

func (r *SemesterRepository) Create(ctx context.Context, s *model.Semester) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO semesters (semester_num, year) VALUES ($1, $2) RETURNING id`,
		s.SemesterNum, s.Year).Scan(&s.ID)
	if isDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *SemesterRepository) GetByID(ctx context.Context, id int) (*model.Semester, error) {
	s := &model.Semester{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, semester_num, year FROM semesters WHERE id = $1`, id,
	).Scan(&s.ID, &s.SemesterNum, &s.Year)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns semesters from the given year onwards, newest first. A zero
// fromYear returns every semester.
func (r *SemesterRepository) List(ctx context.Context, fromYear int) ([]model.Semester, error) {
	b := psql.Select("id", "semester_num", "year").
		From("semesters").
		OrderBy("year DESC", "semester_num DESC")
	if fromYear > 0 {
		b = b.Where(squirrel.GtOrEq{"year": fromYear})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list semesters query: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	semesters := []model.Semester{}
	for rows.Next() {
		var s model.Semester
		if err := rows.Scan(&s.ID, &s.SemesterNum, &s.Year); err != nil {
			return nil, err
		}
		semesters = append(semesters, s)
	}
	return semesters, rows.Err()
}

func (r *SemesterRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM semesters WHERE id = $1`, id)
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
