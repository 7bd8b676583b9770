package match

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents match lifecycle status.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusConnecting Status = "CONNECTING"
	StatusActive     Status = "ACTIVE"
	StatusEnded      Status = "ENDED"
)

var ErrInvalidTransition = errors.New("invalid match status transition")

// Match represents one lockstep match instance.
type Match struct {
	ID                uuid.UUID       `json:"id"`
	Status            Status          `json:"status"`
	HostParticipantID string          `json:"hostParticipantId"`
	Seed              int64           `json:"seed"`
	TickRateHz        int             `json:"tickRateHz"`
	MaxParticipants   int             `json:"maxParticipants"`
	Name              string          `json:"name"`
	Settings          json.RawMessage `json:"settings,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CanTransitionTo validates match status transition. Transitions are
// monotonic; OPEN -> ENDED is the direct cancellation path.
func (m *Match) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusOpen:       {StatusConnecting, StatusEnded},
		StatusConnecting: {StatusActive, StatusEnded},
		StatusActive:     {StatusEnded},
		StatusEnded:      {},
	}
	allowed := transitions[m.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// Transition moves the match to the target status.
func (m *Match) Transition(target Status) error {
	if !m.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	m.Status = target
	return nil
}

// Joinable reports whether the match accepts new participants.
func (m *Match) Joinable() bool {
	return m.Status == StatusOpen
}
