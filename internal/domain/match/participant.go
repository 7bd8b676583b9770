package match

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a participant's role within a match.
type Role string

const (
	RoleHost Role = "HOST"
	RolePeer Role = "PEER"
)

// Faction represents a playable faction. Cosmetic to the sync core.
type Faction string

const (
	FactionRadiant Faction = "Radiant"
	FactionAurum   Faction = "Aurum"
	FactionSolari  Faction = "Solari"
)

// Participant represents one peer within a match.
type Participant struct {
	MatchID       uuid.UUID `json:"matchId"`
	ParticipantID string    `json:"participantId"`
	Role          Role      `json:"role"`
	Connected     bool      `json:"connected"`
	DisplayName   string    `json:"displayName"`
	Faction       Faction   `json:"faction,omitempty"`
	JoinedAt      time.Time `json:"joinedAt"`
}
