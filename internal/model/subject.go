package model

import "time"

// PrerequisiteKind enumerates how strictly a prerequisite subject must be completed.
type PrerequisiteKind string

const (
	PrerequisiteMustHaveStudied PrerequisiteKind = "MUST_HAVE_STUDIED"
	PrerequisiteMustHavePassed  PrerequisiteKind = "MUST_HAVE_PASSED"
)

// Subject is a catalog entry that course offerings are scheduled from.
type Subject struct {
	ID              int                    `json:"id"`
	Code            string                 `json:"code"`
	Name            string                 `json:"name"`
	TheoryCredits   int                    `json:"theory_credits"`
	PracticeCredits int                    `json:"practice_credits"`
	Prerequisites   []PrerequisiteRelation `json:"prerequisites"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// RequiresPractice reports whether enrolling in the subject needs a linked
// theory+practice course pair.
func (s *Subject) RequiresPractice() bool {
	return s.PracticeCredits > 0
}

// PrerequisiteRelation links a subject to a subject that must be completed first.
type PrerequisiteRelation struct {
	SubjectID               int              `json:"subject_id"`
	PrerequisiteSubjectID   int              `json:"prerequisite_subject_id"`
	PrerequisiteSubjectCode string           `json:"prerequisite_subject_code"`
	Kind                    PrerequisiteKind `json:"kind"`
}

// PrerequisiteInput is one prerequisite entry in a subject payload.
type PrerequisiteInput struct {
	SubjectID int              `json:"subject_id" binding:"required,min=1"`
	Kind      PrerequisiteKind `json:"kind" binding:"required,oneof=MUST_HAVE_STUDIED MUST_HAVE_PASSED"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Code            string              `json:"code" binding:"required,alphanum,min=2,max=20"`
	Name            string              `json:"name" binding:"required,min=2,max=150"`
	TheoryCredits   int                 `json:"theory_credits" binding:"min=0,max=20"`
	PracticeCredits int                 `json:"practice_credits" binding:"min=0,max=20"`
	Prerequisites   []PrerequisiteInput `json:"prerequisites" binding:"omitempty,dive"`
}

// UpdateSubjectRequest is the payload for updating a subject.
type UpdateSubjectRequest = CreateSubjectRequest
