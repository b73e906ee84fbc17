package model

import "time"

// RegistrationPeriod is the window during which students may change their registrations.
type RegistrationPeriod struct {
	ID         int       `json:"id"`
	SemesterID int       `json:"semester_id"`
	OpenTime   time.Time `json:"open_time"`
	CloseTime  time.Time `json:"close_time"`
}

// Contains reports whether t falls inside [OpenTime, CloseTime).
func (p *RegistrationPeriod) Contains(t time.Time) bool {
	return !t.Before(p.OpenTime) && t.Before(p.CloseTime)
}

// Overlaps reports whether the two windows share any instant.
func (p *RegistrationPeriod) Overlaps(other *RegistrationPeriod) bool {
	return p.OpenTime.Before(other.CloseTime) && p.CloseTime.After(other.OpenTime)
}

// RegistrationPeriodRequest is the payload for creating or updating a period.
type RegistrationPeriodRequest struct {
	SemesterID int       `json:"semester_id" binding:"required,min=1"`
	OpenTime   time.Time `json:"open_time" binding:"required"`
	CloseTime  time.Time `json:"close_time" binding:"required,gtfield=OpenTime"`
}
