package match

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for matches and participants.
type Repository interface {
	Create(ctx context.Context, m *Match) error
	GetByID(ctx context.Context, matchID uuid.UUID) (*Match, error)
	ListOpen(ctx context.Context) ([]*Match, error)
	UpdateStatus(ctx context.Context, matchID uuid.UUID, status Status) error

	AddParticipant(ctx context.Context, p *Participant) error
	ListParticipants(ctx context.Context, matchID uuid.UUID) ([]*Participant, error)
	SetConnected(ctx context.Context, matchID uuid.UUID, participantID string, connected bool) error
	RemoveParticipant(ctx context.Context, matchID uuid.UUID, participantID string) error
	CountParticipants(ctx context.Context, matchID uuid.UUID) (int, error)
}
