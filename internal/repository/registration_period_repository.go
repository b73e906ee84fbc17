package repository

import (
	"context"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationPeriodRepository handles registration period data access.
type RegistrationPeriodRepository struct {
	pool *pgxpool.Pool
}

func NewRegistrationPeriodRepository(pool *pgxpool.Pool) *RegistrationPeriodRepository {
	return &RegistrationPeriodRepository{pool: pool}
}

const periodColumns = `id, semester_id, open_time, close_time`

func (r *RegistrationPeriodRepository) scanOne(ctx context.Context, sql string, args ...any) (*model.RegistrationPeriod, error) {
	p := &model.RegistrationPeriod{}
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.SemesterID, &p.OpenTime, &p.CloseTime)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NextClosingAfter returns the earliest-opening period that has not closed at t.
func (r *RegistrationPeriodRepository) NextClosingAfter(ctx context.Context, t time.Time) (*model.RegistrationPeriod, error) {
	return r.scanOne(ctx,
		`SELECT `+periodColumns+` FROM registration_periods
		 WHERE close_time > $1
		 ORDER BY open_time ASC
		 LIMIT 1`, t)
}

// OpenAt returns the period whose [open, close) window contains t.
func (r *RegistrationPeriodRepository) OpenAt(ctx context.Context, t time.Time) (*model.RegistrationPeriod, error) {
	return r.scanOne(ctx,
		`SELECT `+periodColumns+` FROM registration_periods
		 WHERE open_time <= $1 AND close_time > $1
		 ORDER BY open_time ASC
		 LIMIT 1`, t)
}

func (r *RegistrationPeriodRepository) GetByID(ctx context.Context, id int) (*model.RegistrationPeriod, error) {
	return r.scanOne(ctx, `SELECT `+periodColumns+` FROM registration_periods WHERE id = $1`, id)
}

// ListOverlapping returns periods other than excludeID that share any instant with [open, close).
func (r *RegistrationPeriodRepository) ListOverlapping(ctx context.Context, open, close time.Time, excludeID int) ([]model.RegistrationPeriod, error) {
	return r.list(ctx,
		`SELECT `+periodColumns+` FROM registration_periods
		 WHERE open_time < $2 AND close_time > $1 AND id <> $3
		 ORDER BY open_time ASC`, open, close, excludeID)
}

// List returns every period, most recent first.
func (r *RegistrationPeriodRepository) List(ctx context.Context) ([]model.RegistrationPeriod, error) {
	return r.list(ctx, `SELECT `+periodColumns+` FROM registration_periods ORDER BY open_time DESC`)
}

func (r *RegistrationPeriodRepository) list(ctx context.Context, sql string, args ...any) ([]model.RegistrationPeriod, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := []model.RegistrationPeriod{}
	for rows.Next() {
		var p model.RegistrationPeriod
		if err := rows.Scan(&p.ID, &p.SemesterID, &p.OpenTime, &p.CloseTime); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *RegistrationPeriodRepository) Create(ctx context.Context, p *model.RegistrationPeriod) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO registration_periods (semester_id, open_time, close_time)
		 VALUES ($1, $2, $3) RETURNING id`,
		p.SemesterID, p.OpenTime, p.CloseTime).Scan(&p.ID)
}

func (r *RegistrationPeriodRepository) Update(ctx context.Context, p *model.RegistrationPeriod) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registration_periods SET semester_id = $1, open_time = $2, close_time = $3 WHERE id = $4`,
		p.SemesterID, p.OpenTime, p.CloseTime, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RegistrationPeriodRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registration_periods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
