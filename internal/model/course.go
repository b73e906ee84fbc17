package model

import "time"

// Course is a scheduled offering of a subject in a semester. A practice
// offering points at its theory offering through MainCourseID; the link is a
// back-reference and does not own the theory offering.
type Course struct {
	ID              int        `json:"id"`
	Code            string     `json:"code"`
	SubjectID       int        `json:"subject_id"`
	SemesterID      int        `json:"semester_id"`
	DayOfWeek       int        `json:"day_of_week"`
	BeginShift      int        `json:"begin_shift"`
	EndShift        int        `json:"end_shift"`
	BeginDate       *time.Time `json:"begin_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	TotalCapacity   int        `json:"total_capacity"`
	RegisteredCount int        `json:"registered_count"`
	Room            string     `json:"room,omitempty"`
	LecturerName    string     `json:"lecturer_name,omitempty"`
	Language        string     `json:"language,omitempty"`
	MainCourseID    *int       `json:"main_course_id,omitempty"`

	// Populated by catalog lookups; not persisted columns.
	Subject    *Subject `json:"subject,omitempty"`
	MainCourse *Course  `json:"main_course,omitempty"`
}

// IsPractice reports whether the offering is a practice section linked to a theory offering.
func (c *Course) IsPractice() bool {
	return c.MainCourseID != nil
}

// IsFull reports whether every seat of the offering is taken.
func (c *Course) IsFull() bool {
	return c.RegisteredCount >= c.TotalCapacity
}

// CreateCourseRequest is the payload for adding a course offering.
type CreateCourseRequest struct {
	Code           string `json:"code" binding:"required,course_code"`
	SemesterID     int    `json:"semester_id" binding:"required,min=1"`
	DayOfWeek      int    `json:"day_of_week" binding:"required,min=1,max=8"`
	BeginShift     int    `json:"begin_shift" binding:"required,min=1"`
	EndShift       int    `json:"end_shift" binding:"required,min=1"`
	BeginDate      string `json:"begin_date" binding:"required,datetime=02/01/2006"`
	EndDate        string `json:"end_date" binding:"required,datetime=02/01/2006"`
	TotalCapacity  int    `json:"total_capacity" binding:"required,min=1"`
	Room           string `json:"room" binding:"omitempty,max=50"`
	LecturerName   string `json:"lecturer_name" binding:"omitempty,max=100"`
	Language       string `json:"language" binding:"omitempty,max=30"`
	MainCourseCode string `json:"main_course_code" binding:"omitempty,course_code"`
}

// CourseFilter narrows admin course listings.
type CourseFilter struct {
	SemesterID *int
	SubjectID  *int
}
