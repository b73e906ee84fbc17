package repository

import (
	"context"

	"github.com/dkhp/registration-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationLogRepository persists the audit trail of enroll and unenroll outcomes.
type RegistrationLogRepository struct {
	pool *pgxpool.Pool
}

func NewRegistrationLogRepository(pool *pgxpool.Pool) *RegistrationLogRepository {
	return &RegistrationLogRepository{pool: pool}
}

// InsertBatch writes the entries with a single COPY.
func (r *RegistrationLogRepository) InsertBatch(ctx context.Context, entries []model.RegistrationLog) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"registration_logs"},
		[]string{"student_id", "course_code", "action", "accepted", "status", "logged_at"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{e.StudentID, e.CourseCode, string(e.Action), e.Accepted, e.Status, e.LoggedAt}, nil
		}),
	)
	return err
}

// ListByStudent returns the most recent entries for a student.
func (r *RegistrationLogRepository) ListByStudent(ctx context.Context, studentID, limit int) ([]model.RegistrationLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, course_code, action, accepted, status, logged_at
		 FROM registration_logs
		 WHERE student_id = $1
		 ORDER BY logged_at DESC
		 LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.RegistrationLog{}
	for rows.Next() {
		var l model.RegistrationLog
		if err := rows.Scan(&l.StudentID, &l.CourseCode, &l.Action, &l.Accepted, &l.Status, &l.LoggedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
