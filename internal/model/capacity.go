package model

import (
	"encoding/json"
	"time"
)

// CapacitySnapshot maps course id to its registered count for every course
// in the currently open registration period.
type CapacitySnapshot struct {
	SemesterID int         `json:"semester_id"`
	Counts     map[int]int `json:"counts"`
	TakenAt    time.Time   `json:"taken_at"`

	// Payload is Counts as JSON. Subscribers share it read-only.
	Payload []byte `json:"-"`
}

// Encode fills Payload from Counts. It must run before the snapshot is
// handed to concurrent senders.
func (s *CapacitySnapshot) Encode() error {
	if s.Payload != nil {
		return nil
	}
	raw, err := json.Marshal(s.Counts)
	if err != nil {
		return err
	}
	s.Payload = raw
	return nil
}

// EncodedCounts returns Payload, or a fresh encoding when Encode was never called.
func (s *CapacitySnapshot) EncodedCounts() ([]byte, error) {
	if s.Payload != nil {
		return s.Payload, nil
	}
	return json.Marshal(s.Counts)
}
