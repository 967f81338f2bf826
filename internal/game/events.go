package game

import (
	"github.com/MJE43/rps-gauntlet/internal/session"
)

// EventKind names what an Event carries.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventRound     EventKind = "round"
	EventTick      EventKind = "tick"
	EventLocked    EventKind = "locked"
	EventCompleted EventKind = "completed"
	EventAbandoned EventKind = "abandoned"
)

// Event is pushed to subscribers of a session.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`

	Snapshot    *session.Snapshot   `json:"snapshot,omitempty"`
	Round       *session.RoundEvent `json:"round,omitempty"`
	RemainingMs int64               `json:"remaining_ms,omitempty"`
	Completion  *session.Completion `json:"completion,omitempty"`
}

// Publisher receives session events. Publish may be called from countdown
// goroutines and must not call back into the Service.
type Publisher interface {
	Publish(ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
