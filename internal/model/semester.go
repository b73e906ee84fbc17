package model

// Semester identifies one academic term.
type Semester struct {
	ID          int `json:"id"`
	SemesterNum int `json:"semester_num"`
	Year        int `json:"year"`
}

// CreateSemesterRequest is the payload for creating a semester.
type CreateSemesterRequest struct {
	SemesterNum int `json:"semester_num" binding:"required,min=1,max=3"`
	Year        int `json:"year" binding:"required,min=2000,max=2100"`
}
