package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/repository"
	"github.com/rs/zerolog"
)

// SubjectStore is the persistence the subject service needs.
type SubjectStore interface {
	Create(ctx context.Context, s *model.Subject) error
	Update(ctx context.Context, s *model.Subject) error
	GetByID(ctx context.Context, id int) (*model.Subject, error)
	GetAll(ctx context.Context) ([]model.Subject, error)
	ExistingIDs(ctx context.Context, ids []int) (map[int]struct{}, error)
	Delete(ctx context.Context, id int) error
}

type SubjectService struct {
	subjects SubjectStore
	log      zerolog.Logger
}

func NewSubjectService(subjects SubjectStore, log zerolog.Logger) *SubjectService {
	return &SubjectService{
		subjects: subjects,
		log:      logger.Component(log, "subject_service"),
	}
}

func (s *SubjectService) GetAll(ctx context.Context) ([]model.Subject, error) {
	return s.subjects.GetAll(ctx)
}

func (s *SubjectService) GetByID(ctx context.Context, id int) (*model.Subject, error) {
	sub, err := s.subjects.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSubjectNotFound
	}
	return sub, err
}

func (s *SubjectService) Create(ctx context.Context, req *model.CreateSubjectRequest) (*model.Subject, error) {
	sub, err := s.build(ctx, 0, req)
	if err != nil {
		return nil, err
	}
	if err := s.subjects.Create(ctx, sub); err != nil {
		return nil, mapStoreError(err, ErrSubjectNotFound)
	}
	s.log.Info().Int("subject_id", sub.ID).Str("code", sub.Code).Msg("Subject created")
	return sub, nil
}

// Update rewrites the subject and replaces its whole prerequisite set.
func (s *SubjectService) Update(ctx context.Context, id int, req *model.UpdateSubjectRequest) (*model.Subject, error) {
	sub, err := s.build(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := s.subjects.Update(ctx, sub); err != nil {
		return nil, mapStoreError(err, ErrSubjectNotFound)
	}
	return sub, nil
}

func (s *SubjectService) Delete(ctx context.Context, id int) error {
	return mapStoreError(s.subjects.Delete(ctx, id), ErrSubjectNotFound)
}

func (s *SubjectService) build(ctx context.Context, id int, req *model.CreateSubjectRequest) (*model.Subject, error) {
	sub := &model.Subject{
		ID:              id,
		Code:            req.Code,
		Name:            req.Name,
		TheoryCredits:   req.TheoryCredits,
		PracticeCredits: req.PracticeCredits,
		Prerequisites:   make([]model.PrerequisiteRelation, 0, len(req.Prerequisites)),
	}

	ids := make([]int, 0, len(req.Prerequisites))
	seen := make(map[int]struct{}, len(req.Prerequisites))
	for _, p := range req.Prerequisites {
		if p.SubjectID == id {
			return nil, fmt.Errorf("%w: a subject cannot require itself", ErrInvalidPrerequisite)
		}
		if _, dup := seen[p.SubjectID]; dup {
			return nil, fmt.Errorf("%w: subject %d listed twice", ErrInvalidPrerequisite, p.SubjectID)
		}
		seen[p.SubjectID] = struct{}{}
		ids = append(ids, p.SubjectID)
		sub.Prerequisites = append(sub.Prerequisites, model.PrerequisiteRelation{
			SubjectID:             id,
			PrerequisiteSubjectID: p.SubjectID,
			Kind:                  p.Kind,
		})
	}
	if len(ids) == 0 {
		return sub, nil
	}

	existing, err := s.subjects.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check prerequisites: %w", err)
	}
	for _, pid := range ids {
		if _, ok := existing[pid]; !ok {
			return nil, fmt.Errorf("%w: subject %d does not exist", ErrInvalidPrerequisite, pid)
		}
	}
	return sub, nil
}

// mapStoreError translates repository sentinels into service errors.
func mapStoreError(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, repository.ErrReferenced):
		return ErrInUse
	}
	return err
}
