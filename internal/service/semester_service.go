package service

import (
	"context"
	"time"

	"github.com/dkhp/registration-backend/internal/model"
)

// SemesterStore is the persistence the semester service needs.
type SemesterStore interface {
	Create(ctx context.Context, s *model.Semester) error
	List(ctx context.Context, fromYear int) ([]model.Semester, error)
	Delete(ctx context.Context, id int) error
}

type SemesterService struct {
	semesters SemesterStore
	now       func() time.Time
}

func NewSemesterService(semesters SemesterStore) *SemesterService {
	return &SemesterService{semesters: semesters, now: time.Now}
}

func (s *SemesterService) Create(ctx context.Context, req *model.CreateSemesterRequest) (*model.Semester, error) {
	sem := &model.Semester{SemesterNum: req.SemesterNum, Year: req.Year}
	if err := s.semesters.Create(ctx, sem); err != nil {
		return nil, mapStoreError(err, ErrSemesterNotFound)
	}
	return sem, nil
}

func (s *SemesterService) List(ctx context.Context) ([]model.Semester, error) {
	return s.semesters.List(ctx, 0)
}

// ListLatest returns semesters of the current year and later.
func (s *SemesterService) ListLatest(ctx context.Context) ([]model.Semester, error) {
	return s.semesters.List(ctx, s.now().Year())
}

func (s *SemesterService) Delete(ctx context.Context, id int) error {
	return mapStoreError(s.semesters.Delete(ctx, id), ErrSemesterNotFound)
}
