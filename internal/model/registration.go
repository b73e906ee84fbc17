package model

import "time"

// Registration records that a student holds a seat in a course. Passed is set
// by grading once the semester concludes and is read-only here.
type Registration struct {
	StudentID    int       `json:"student_id"`
	CourseID     int       `json:"course_id"`
	Passed       *bool     `json:"passed,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegistrationAction distinguishes audit log entries.
type RegistrationAction string

const (
	RegistrationActionEnroll   RegistrationAction = "ENROLL"
	RegistrationActionUnenroll RegistrationAction = "UNENROLL"
)

// RegistrationLog is one persisted outcome of an enroll or unenroll request.
type RegistrationLog struct {
	StudentID  int                `json:"student_id"`
	CourseCode string             `json:"course_code"`
	Action     RegistrationAction `json:"action"`
	Accepted   bool               `json:"accepted"`
	Status     string             `json:"status"`
	LoggedAt   time.Time          `json:"logged_at"`
}

// CourseBatchRequest is the payload for enroll and unenroll calls.
type CourseBatchRequest struct {
	CourseIDs []int `json:"course_ids" binding:"required,min=1,max=30,dive,min=1"`
}
