// Package coordinator owns match and participant lifecycle: it creates and
// joins matches against the persistence backend, derives and distributes the
// shared seed, and wires the command queue, validator, RNG, and transport
// together for one match at a time.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sol-rts/netcore/internal/domain/command"
	"github.com/sol-rts/netcore/internal/domain/match"
	"github.com/sol-rts/netcore/internal/events"
	"github.com/sol-rts/netcore/internal/lockstep"
	"github.com/sol-rts/netcore/internal/transport"
)

var (
	// ErrBackendUnavailable wraps persistence failures during match setup.
	ErrBackendUnavailable = errors.New("persistence backend unavailable")

	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchNotJoinable = errors.New("match not joinable")
	ErrMatchFull        = errors.New("match full")

	// ErrInvalidParameters marks caller errors: fatal to the call, not the
	// process.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrNoMatch is returned by operations that require a current match.
	ErrNoMatch = errors.New("no current match")
)

const defaultTickRateHz = 10

// Service coordinates one match at a time for the local peer.
type Service struct {
	repo      match.Repository
	transport transport.Transport
	bus       *events.Bus
	logger    zerolog.Logger

	mu        sync.Mutex
	current   *match.Match
	local     *match.Participant
	roster    []string
	queue     *lockstep.CommandQueue
	rng       *lockstep.RNG
	validator *command.Validator
	started   bool
	ended     bool
}

// NewService creates a match coordinator. The transport is owned exclusively
// by this coordinator and is never handed to the simulation layer; the
// simulation only sees queue output.
func NewService(repo match.Repository, tp transport.Transport, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		transport: tp,
		bus:       bus,
		logger:    logger.With().Str("service", "coordinator").Logger(),
	}
}

// CreateMatchInput defines match creation input.
type CreateMatchInput struct {
	Name            string
	Host            match.Participant
	MaxParticipants int
	TickRateHz      int
	Settings        json.RawMessage
	// Seed overrides derivation when set. Joiners never supply this; only
	// the host fixes the seed, once, at creation.
	Seed *int64
}

// CreateMatch persists a new open match with the local peer as host and
// derives the shared seed.
func (s *Service) CreateMatch(ctx context.Context, input CreateMatchInput) (*match.Match, error) {
	if input.MaxParticipants < 2 {
		return nil, fmt.Errorf("%w: maxParticipants must be >= 2", ErrInvalidParameters)
	}
	if input.Host.ParticipantID == "" {
		return nil, fmt.Errorf("%w: host participantId is required", ErrInvalidParameters)
	}
	if input.TickRateHz <= 0 {
		input.TickRateHz = defaultTickRateHz
	}
	rules, err := command.CompileRules(input.Settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	id := uuid.New()
	seed := lockstep.DeriveSeed(id, lockstep.NewSeedEntropy())
	if input.Seed != nil {
		seed = *input.Seed
	}

	now := time.Now().UTC()
	m := &match.Match{
		ID:                id,
		Status:            match.StatusOpen,
		HostParticipantID: input.Host.ParticipantID,
		Seed:              seed,
		TickRateHz:        input.TickRateHz,
		MaxParticipants:   input.MaxParticipants,
		Name:              input.Name,
		Settings:          input.Settings,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	host := input.Host
	host.MatchID = id
	host.Role = match.RoleHost
	host.JoinedAt = now
	if err := s.repo.AddParticipant(ctx, &host); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	s.current = m
	s.local = &host
	s.validator = command.NewValidator(rules)
	s.started = false
	s.ended = false
	s.mu.Unlock()

	s.logger.Info().
		Str("match_id", id.String()).
		Int64("seed", seed).
		Int("tick_rate", m.TickRateHz).
		Msg("match created")
	s.bus.Publish(events.MatchCreated{Match: m})
	s.bus.Publish(events.ParticipantJoined{Participant: &host})
	return m, nil
}

// ListOpenMatches returns matches accepting participants. No open matches is
// an empty list, not an error.
func (s *Service) ListOpenMatches(ctx context.Context) ([]*match.Match, error) {
	matches, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return matches, nil
}

// JoinMatch joins an open match as a peer. The joiner adopts the match's
// stored seed; it never generates its own.
func (s *Service) JoinMatch(ctx context.Context, matchID uuid.UUID, p match.Participant) error {
	if p.ParticipantID == "" {
		return fmt.Errorf("%w: participantId is required", ErrInvalidParameters)
	}

	m, err := s.repo.GetByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if m == nil {
		return ErrMatchNotFound
	}
	if !m.Joinable() {
		return fmt.Errorf("%w: status is %s", ErrMatchNotJoinable, m.Status)
	}
	count, err := s.repo.CountParticipants(ctx, matchID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count >= m.MaxParticipants {
		return ErrMatchFull
	}
	rules, err := command.CompileRules(m.Settings)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	p.MatchID = matchID
	p.Role = match.RolePeer
	p.JoinedAt = time.Now().UTC()
	if err := s.repo.AddParticipant(ctx, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	s.current = m
	s.local = &p
	s.validator = command.NewValidator(rules)
	s.started = false
	s.ended = false
	s.mu.Unlock()

	s.logger.Info().
		Str("match_id", matchID.String()).
		Str("participant_id", p.ParticipantID).
		Int64("seed", m.Seed).
		Msg("joined match")
	s.bus.Publish(events.ParticipantJoined{Participant: &p})
	return nil
}

// StartMatch freezes the roster, constructs the command queue and the match
// RNG, and begins the transport handshake. The match transitions to ACTIVE
// (and MatchStarted is emitted with the seed) once the transport reports
// readiness.
func (s *Service) StartMatch(ctx context.Context) error {
	s.mu.Lock()
	m := s.current
	local := s.local
	started := s.started
	s.mu.Unlock()

	if m == nil {
		return ErrNoMatch
	}
	if started {
		return fmt.Errorf("%w: match already started", ErrInvalidParameters)
	}

	participants, err := s.repo.ListParticipants(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(participants) < 2 {
		return fmt.Errorf("%w: need at least 2 participants to start", ErrInvalidParameters)
	}
	roster := make([]string, 0, len(participants))
	for _, p := range participants {
		roster = append(roster, p.ParticipantID)
	}

	s.mu.Lock()
	if err := m.Transition(match.StatusConnecting); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	s.mu.Unlock()
	if err := s.repo.UpdateStatus(ctx, m.ID, match.StatusConnecting); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	s.roster = roster
	s.queue = lockstep.NewCommandQueue(roster)
	s.rng = lockstep.NewRNG(m.Seed)
	s.started = true
	s.mu.Unlock()

	s.logger.Info().
		Str("match_id", m.ID.String()).
		Strs("roster", roster).
		Msg("connecting")
	s.bus.Publish(events.Connecting{MatchID: m.ID})

	s.transport.OnCommand(s.handleRemoteCommand)
	s.transport.OnReady(func() { s.handleTransportReady(m.ID) })
	if err := s.transport.Start(ctx, transport.Session{
		MatchID:            m.ID,
		LocalParticipantID: local.ParticipantID,
		IsHost:             local.Role == match.RoleHost,
		PeerIDs:            roster,
	}); err != nil {
		s.bus.Publish(events.Error{Kind: "transport", Detail: err.Error()})
		return fmt.Errorf("transport start: %w", err)
	}
	return nil
}

// EndMatch tears the match down. Idempotent: the second call is a no-op and
// exactly one MatchEnded event is emitted. A failed persistence write must
// not prevent local teardown.
func (s *Service) EndMatch(ctx context.Context, reason string) error {
	s.mu.Lock()
	m := s.current
	local := s.local
	queue := s.queue
	alreadyEnded := s.ended || m == nil
	var transitionErr error
	persistEnd := false
	if !alreadyEnded {
		s.ended = true
		if m.Status != match.StatusEnded {
			if transitionErr = m.Transition(match.StatusEnded); transitionErr == nil {
				persistEnd = true
			}
		}
	}
	s.mu.Unlock()

	if alreadyEnded {
		return nil
	}

	if err := s.transport.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("transport close failed")
	}
	if queue != nil {
		queue.Clear()
	}

	if transitionErr != nil {
		s.logger.Warn().Err(transitionErr).Msg("status not transitionable to ended")
	}
	if persistEnd {
		if err := s.repo.UpdateStatus(ctx, m.ID, match.StatusEnded); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist match end")
		}
	}

	s.logger.Info().
		Str("match_id", m.ID.String()).
		Str("reason", reason).
		Msg("match ended")
	if local != nil {
		s.bus.Publish(events.ParticipantLeft{Participant: local})
	}
	s.bus.Publish(events.MatchEnded{MatchID: m.ID, Reason: reason})
	return nil
}

// SubmitLocal validates a locally-originated command, appends it to the
// local slot of the queue, and hands it to the transport for best-effort
// broadcast. The command is canonicalized first so the local queue holds
// exactly what remote queues will decode off the wire. Delivery failures are
// a liveness concern surfaced as events, never a submit error.
func (s *Service) SubmitLocal(ctx context.Context, cmd command.Command) error {
	s.mu.Lock()
	queue := s.queue
	validator := s.validator
	started := s.started
	ended := s.ended
	s.mu.Unlock()

	if !started || ended || queue == nil {
		return ErrNoMatch
	}
	cmd = command.Canonical(cmd)
	if err := validator.Validate(cmd); err != nil {
		s.logger.Warn().Err(err).Str("command_type", string(cmd.Type)).Msg("local command rejected")
		return err
	}
	if err := queue.Add(cmd); err != nil {
		s.logger.Debug().Err(err).Uint64("tick", cmd.Tick).Msg("local command not queued")
		return err
	}
	if err := s.transport.Send(ctx, cmd); err != nil {
		s.logger.Warn().Err(err).Uint64("tick", cmd.Tick).Msg("broadcast failed")
		s.bus.Publish(events.Error{Kind: "transport", Detail: err.Error()})
	}
	return nil
}

// NextTickCommands returns the current tick's complete ordered batch, or
// false while any participant's contribution is missing.
func (s *Service) NextTickCommands() ([]command.Command, bool) {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return nil, false
	}
	return queue.NextBatch()
}

// AdvanceTick moves the release cursor after a batch has been consumed.
func (s *Service) AdvanceTick() {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue != nil {
		queue.Advance()
	}
}

// CurrentTick returns the queue's release cursor.
func (s *Service) CurrentTick() uint64 {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return 0
	}
	return queue.CurrentTick()
}

// Seed returns the shared match seed.
func (s *Service) Seed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.Seed
}

// RNG returns the match-owned deterministic RNG. Nil before StartMatch.
func (s *Service) RNG() *lockstep.RNG {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

// CurrentMatch returns a snapshot of the current match, or nil. The status
// field keeps changing on the live match, so callers get a copy.
func (s *Service) CurrentMatch() *match.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	snapshot := *s.current
	return &snapshot
}

// QueueStats exposes queue diagnostics.
func (s *Service) QueueStats() lockstep.QueueStats {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return lockstep.QueueStats{}
	}
	return queue.Stats()
}

// TransportStats exposes transport diagnostics.
func (s *Service) TransportStats() transport.Stats {
	return s.transport.Stats()
}

func (s *Service) handleTransportReady(matchID uuid.UUID) {
	s.mu.Lock()
	m := s.current
	local := s.local
	if s.ended || m == nil || m.ID != matchID {
		s.mu.Unlock()
		return
	}
	err := m.Transition(match.StatusActive)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn().Err(err).Msg("unexpected status on transport ready")
		return
	}
	// Persistence is best-effort here: the mesh is already usable and the
	// match proceeds locally even if the backend write fails.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.UpdateStatus(ctx, m.ID, match.StatusActive); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist active status")
	}
	if local != nil {
		if err := s.repo.SetConnected(ctx, m.ID, local.ParticipantID, true); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist connected flag")
		}
	}

	s.logger.Info().
		Str("match_id", m.ID.String()).
		Int64("seed", m.Seed).
		Msg("match started")
	s.bus.Publish(events.Connected{MatchID: m.ID})
	s.bus.Publish(events.MatchStarted{MatchID: m.ID, Seed: m.Seed})
}

func (s *Service) handleRemoteCommand(cmd command.Command) {
	s.mu.Lock()
	queue := s.queue
	validator := s.validator
	local := s.local
	ended := s.ended
	s.mu.Unlock()

	if ended || queue == nil {
		return
	}
	if local != nil && cmd.ParticipantID == local.ParticipantID {
		// The relay does not echo, but a misbehaving peer could spoof the
		// local id; the local slot is fed only by SubmitLocal.
		s.logger.Warn().Uint64("tick", cmd.Tick).Msg("dropping remote command claiming local id")
		return
	}
	if err := validator.Validate(cmd); err != nil {
		s.logger.Debug().Err(err).Str("command_type", string(cmd.Type)).Msg("remote command rejected")
		return
	}
	if err := queue.Add(cmd); err != nil {
		s.logger.Debug().Err(err).Uint64("tick", cmd.Tick).Msg("remote command dropped")
		return
	}
	s.bus.Publish(events.CommandReceived{Command: cmd})
}
