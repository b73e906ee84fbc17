package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubjectRepository handles subject and prerequisite data access.
type SubjectRepository struct {
	pool *pgxpool.Pool
}

func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// Create inserts the subject and its prerequisite relations in one transaction.
func (r *SubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO subjects (code, name, theory_credits, practice_credits)
			 VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
			s.Code, s.Name, s.TheoryCredits, s.PracticeCredits,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return err
		}
		return insertPrerequisites(ctx, tx, s.ID, s.Prerequisites)
	})
	return mapWriteError(err)
}

// Update rewrites the subject and replaces its prerequisite set.
func (r *SubjectRepository) Update(ctx context.Context, s *model.Subject) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE subjects
			 SET code = $1, name = $2, theory_credits = $3, practice_credits = $4, updated_at = NOW()
			 WHERE id = $5
			 RETURNING created_at, updated_at`,
			s.Code, s.Name, s.TheoryCredits, s.PracticeCredits, s.ID,
		).Scan(&s.CreatedAt, &s.UpdatedAt)
		if isNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM subject_prerequisites WHERE subject_id = $1`, s.ID); err != nil {
			return err
		}
		return insertPrerequisites(ctx, tx, s.ID, s.Prerequisites)
	})
	return mapWriteError(err)
}

func insertPrerequisites(ctx context.Context, tx pgx.Tx, subjectID int, rels []model.PrerequisiteRelation) error {
	if len(rels) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"subject_prerequisites"},
		[]string{"subject_id", "prerequisite_subject_id", "kind"},
		pgx.CopyFromSlice(len(rels), func(i int) ([]any, error) {
			return []any{subjectID, rels[i].PrerequisiteSubjectID, string(rels[i].Kind)}, nil
		}),
	)
	return err
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case isDuplicateKeyError(err):
		return ErrDuplicate
	case isForeignKeyError(err):
		return ErrReferenced
	}
	return err
}

func (r *SubjectRepository) GetByID(ctx context.Context, id int) (*model.Subject, error) {
	subjects, err := r.list(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, ErrNotFound
	}
	return &subjects[0], nil
}

func (r *SubjectRepository) GetByCode(ctx context.Context, code string) (*model.Subject, error) {
	subjects, err := r.list(ctx, squirrel.Eq{"code": code})
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, ErrNotFound
	}
	return &subjects[0], nil
}

// GetAll returns every subject with its prerequisites, ordered by code.
func (r *SubjectRepository) GetAll(ctx context.Context) ([]model.Subject, error) {
	return r.list(ctx, nil)
}

// ExistingIDs returns the subset of ids that name a subject.
func (r *SubjectRepository) ExistingIDs(ctx context.Context, ids []int) (map[int]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM subjects WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int]struct{}, len(ids))
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}

func (r *SubjectRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]model.Subject, error) {
	b := psql.Select("id", "code", "name", "theory_credits", "practice_credits", "created_at", "updated_at").
		From("subjects").
		OrderBy("code ASC")
	if where != nil {
		b = b.Where(where)
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list subjects query: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := []model.Subject{}
	index := make(map[int]int)
	var ids []int
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.TheoryCredits, &s.PracticeCredits, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Prerequisites = []model.PrerequisiteRelation{}
		index[s.ID] = len(subjects)
		ids = append(ids, s.ID)
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return subjects, nil
	}

	rels, err := r.prerequisitesOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		i := index[rel.SubjectID]
		subjects[i].Prerequisites = append(subjects[i].Prerequisites, rel)
	}
	return subjects, nil
}

// Prerequisites returns the prerequisite relations of one subject.
func (r *SubjectRepository) Prerequisites(ctx context.Context, subjectID int) ([]model.PrerequisiteRelation, error) {
	return r.prerequisitesOf(ctx, []int{subjectID})
}

func (r *SubjectRepository) prerequisitesOf(ctx context.Context, subjectIDs []int) ([]model.PrerequisiteRelation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sp.subject_id, sp.prerequisite_subject_id, p.code, sp.kind
		 FROM subject_prerequisites sp
		 JOIN subjects p ON p.id = sp.prerequisite_subject_id
		 WHERE sp.subject_id = ANY($1)
		 ORDER BY sp.subject_id, p.code`, subjectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []model.PrerequisiteRelation
	for rows.Next() {
		var rel model.PrerequisiteRelation
		if err := rows.Scan(&rel.SubjectID, &rel.PrerequisiteSubjectID, &rel.PrerequisiteSubjectCode, &rel.Kind); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// Delete removes a subject. Subjects with course offerings cannot be removed.
func (r *SubjectRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
