package websocket

import (
	"encoding/json"
	"time"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client frame.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventCapacity Event = "capacity"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// CapacityEvent carries one broadcaster tick: course id → registered count.
type CapacityEvent struct {
	Event      Event           `json:"event"`
	SemesterID int             `json:"semester_id"`
	Counts     json.RawMessage `json:"counts"`
	TakenAt    time.Time       `json:"taken_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
