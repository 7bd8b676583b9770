package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sol-rts/netcore/internal/domain/match"
)

// MatchRepository implements match.Repository.
type MatchRepository struct {
	pool *pgxpool.Pool
}

func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

func (r *MatchRepository) Create(ctx context.Context, m *match.Match) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO matches
		(id, status, host_participant_id, seed, tick_rate, max_participants, name, settings, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, m.ID, m.Status, m.HostParticipantID, m.Seed, m.TickRateHz, m.MaxParticipants, m.Name, m.Settings, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, status, host_participant_id, seed, tick_rate, max_participants, name, settings, created_at, updated_at
		FROM matches WHERE id=$1
	`, matchID)
	return scanMatch(row)
}

func (r *MatchRepository) ListOpen(ctx context.Context) ([]*match.Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, host_participant_id, seed, tick_rate, max_participants, name, settings, created_at, updated_at
		FROM matches WHERE status=$1 ORDER BY created_at DESC
	`, match.StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*match.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID uuid.UUID, status match.Status) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE matches SET status=$1, updated_at=$2 WHERE id=$3
	`, status, time.Now().UTC(), matchID)
	return err
}

func (r *MatchRepository) AddParticipant(ctx context.Context, p *match.Participant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO participants
		(match_id, participant_id, role, connected, display_name, faction, joined_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.MatchID, p.ParticipantID, p.Role, p.Connected, p.DisplayName, p.Faction, p.JoinedAt)
	return err
}

func (r *MatchRepository) ListParticipants(ctx context.Context, matchID uuid.UUID) ([]*match.Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT match_id, participant_id, role, connected, display_name, faction, joined_at
		FROM participants WHERE match_id=$1 ORDER BY participant_id
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*match.Participant, 0)
	for rows.Next() {
		var p match.Participant
		if err := rows.Scan(&p.MatchID, &p.ParticipantID, &p.Role, &p.Connected, &p.DisplayName, &p.Faction, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

func (r *MatchRepository) SetConnected(ctx context.Context, matchID uuid.UUID, participantID string, connected bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE participants SET connected=$1 WHERE match_id=$2 AND participant_id=$3
	`, connected, matchID, participantID)
	return err
}

func (r *MatchRepository) RemoveParticipant(ctx context.Context, matchID uuid.UUID, participantID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM participants WHERE match_id=$1 AND participant_id=$2
	`, matchID, participantID)
	return err
}

func (r *MatchRepository) CountParticipants(ctx context.Context, matchID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM participants WHERE match_id=$1
	`, matchID).Scan(&n)
	return n, err
}

func scanMatch(row pgx.Row) (*match.Match, error) {
	var m match.Match
	if err := row.Scan(&m.ID, &m.Status, &m.HostParticipantID, &m.Seed, &m.TickRateHz, &m.MaxParticipants, &m.Name, &m.Settings, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
