// Demo peer: creates or joins a match, runs the lockstep tick loop against
// the relay, and logs a digest of every released batch. Two peers pointed at
// the same match should log identical digests tick for tick.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/sol-rts/netcore/internal/application/coordinator"
	"github.com/sol-rts/netcore/internal/config"
	"github.com/sol-rts/netcore/internal/domain/command"
	"github.com/sol-rts/netcore/internal/domain/match"
	"github.com/sol-rts/netcore/internal/events"
	"github.com/sol-rts/netcore/internal/infrastructure/postgres"
	"github.com/sol-rts/netcore/internal/transport/relayws"
)

type runtimeConfig struct {
	ParticipantID string
	DisplayName   string
	Faction       string
	MatchID       string
	MatchName     string
	MaxPeers      int
	Ticks         int
	RosterWait    time.Duration
	ReadyWait     time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	peerCfg := loadPeerConfig()

	logger := zerolog.New(os.Stdout).With().Timestamp().
		Str("participant_id", peerCfg.ParticipantID).Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewMatchRepository(pool)
	bus := events.NewBus()
	bus.Subscribe(events.KindError, func(e events.Event) {
		ev := e.(events.Error)
		logger.Warn().Str("kind", ev.Kind).Str("detail", ev.Detail).Msg("coordinator error")
	})

	tp := relayws.New(cfg.RelayURL, logger)
	svc := coordinator.NewService(repo, tp, bus, logger)

	local := match.Participant{
		ParticipantID: peerCfg.ParticipantID,
		DisplayName:   peerCfg.DisplayName,
		Faction:       match.Faction(peerCfg.Faction),
	}

	var m *match.Match
	if peerCfg.MatchID == "" {
		m, err = svc.CreateMatch(ctx, coordinator.CreateMatchInput{
			Name:            peerCfg.MatchName,
			Host:            local,
			MaxParticipants: peerCfg.MaxPeers,
			TickRateHz:      cfg.TickRateHz,
		})
		if err != nil {
			log.Fatalf("create match: %v", err)
		}
		logger.Info().Str("match_id", m.ID.String()).Int64("seed", m.Seed).Msg("match created, waiting for peers")
		if err := waitForRoster(ctx, repo, m.ID, peerCfg.MaxPeers, peerCfg.RosterWait); err != nil {
			log.Fatalf("waiting for peers: %v", err)
		}
	} else {
		matchID, err := uuid.Parse(peerCfg.MatchID)
		if err != nil {
			log.Fatalf("invalid PEER_MATCH_ID: %v", err)
		}
		if err := svc.JoinMatch(ctx, matchID, local); err != nil {
			log.Fatalf("join match: %v", err)
		}
		m = svc.CurrentMatch()
		logger.Info().Str("match_id", matchID.String()).Int64("seed", m.Seed).Msg("joined match")
	}

	ready := make(chan struct{})
	bus.Subscribe(events.KindMatchStarted, func(events.Event) { close(ready) })

	if err := svc.StartMatch(ctx); err != nil {
		log.Fatalf("start match: %v", err)
	}
	select {
	case <-ready:
	case <-time.After(peerCfg.ReadyWait):
		log.Fatalf("transport not ready after %s", peerCfg.ReadyWait)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	runTicks(ctx, svc, logger, peerCfg, quit)

	if err := svc.EndMatch(ctx, "demo finished"); err != nil {
		logger.Warn().Err(err).Msg("end match failed")
	}
}

// runTicks drives the lockstep loop: submit this peer's command for the
// current tick, wait for the full batch, log its digest, advance.
func runTicks(ctx context.Context, svc *coordinator.Service, logger zerolog.Logger, cfg *runtimeConfig, quit <-chan os.Signal) {
	interval := time.Second / time.Duration(svc.CurrentMatch().TickRateHz)
	for i := 0; i < cfg.Ticks; i++ {
		tick := svc.CurrentTick()
		if err := svc.SubmitLocal(ctx, scriptedCommand(tick, cfg.ParticipantID)); err != nil {
			logger.Warn().Err(err).Uint64("tick", tick).Msg("submit failed")
		}

		batch := waitForBatch(svc, quit)
		if batch == nil {
			logger.Info().Msg("interrupted, leaving match")
			return
		}
		logger.Info().
			Uint64("tick", tick).
			Int("commands", len(batch)).
			Str("digest", batchDigest(batch)).
			Msg("tick released")
		svc.AdvanceTick()
		time.Sleep(interval)
	}
}

func waitForBatch(svc *coordinator.Service, quit <-chan os.Signal) []command.Command {
	for {
		if batch, ok := svc.NextTickCommands(); ok {
			return batch
		}
		select {
		case <-quit:
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// scriptedCommand derives this peer's command from the tick alone so reruns
// of the demo are reproducible.
func scriptedCommand(tick uint64, participantID string) command.Command {
	cmd := command.Command{Tick: tick, ParticipantID: participantID}
	switch {
	case tick%7 == 3:
		cmd.Type = command.TypeBuildMirror
		cmd.Payload = command.BuildMirrorPayload{X: float64(tick), Y: float64(tick % 13)}
	case tick%5 == 1:
		cmd.Type = command.TypeProduceUnit
		cmd.Payload = command.ProduceUnitPayload{UnitType: "seeker", Qty: 1}
	default:
		cmd.Type = command.TypeNoop
		cmd.Payload = command.NoopPayload{}
	}
	return cmd
}

func batchDigest(batch []command.Command) string {
	data, _ := json.Marshal(batch)
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}

func waitForRoster(ctx context.Context, repo match.Repository, matchID uuid.UUID, want int, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		count, err := repo.CountParticipants(ctx, matchID)
		if err != nil {
			return err
		}
		if count >= want {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("roster incomplete after %s", wait)
}

func loadPeerConfig() *runtimeConfig {
	hostname, _ := os.Hostname()
	pid := getenv("PEER_ID", strings.TrimSpace(hostname))
	if pid == "" {
		pid = "peer-1"
	}
	return &runtimeConfig{
		ParticipantID: pid,
		DisplayName:   getenv("PEER_NAME", pid),
		Faction:       getenv("PEER_FACTION", string(match.FactionRadiant)),
		MatchID:       getenv("PEER_MATCH_ID", ""),
		MatchName:     getenv("PEER_MATCH_NAME", "demo match"),
		MaxPeers:      parseInt(getenv("PEER_MAX_PEERS", "2"), 2),
		Ticks:         parseInt(getenv("PEER_TICKS", "100"), 100),
		RosterWait:    parseDuration(getenv("PEER_ROSTER_WAIT", "120s"), 2*time.Minute),
		ReadyWait:     parseDuration(getenv("PEER_READY_WAIT", "30s"), 30*time.Second),
	}
}

func getenv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func parseInt(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
