// Package transport abstracts the peer-connection mechanism that moves
// commands between participants. Implementations deliver remote commands in
// arbitrary per-connection arrival order; determinism is restored downstream
// by the lockstep command queue, never here.
package transport

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sol-rts/netcore/internal/domain/command"
)

// Session identifies the local peer's place in a match mesh.
type Session struct {
	MatchID            uuid.UUID
	LocalParticipantID string
	IsHost             bool
	PeerIDs            []string
}

// PeerStats is per-peer diagnostic state. Never consumed for correctness: a
// degraded peer stalls tick release at the queue, it does not fail the
// transport.
type PeerStats struct {
	Connected    bool          `json:"connected"`
	LastSeenTick uint64        `json:"lastSeenTick"`
	FramesIn     uint64        `json:"framesIn"`
	Latency      time.Duration `json:"latency"`
}

// Stats is a diagnostic snapshot of the transport.
type Stats struct {
	Ready     bool                 `json:"ready"`
	FramesOut uint64               `json:"framesOut"`
	Peers     map[string]PeerStats `json:"peers"`
}

// Transport moves locally-originated commands to every other participant and
// surfaces remotely-originated commands to the local queue. Sends are
// best-effort and ack-less: a missing command is a liveness problem (the
// queue never releases an incomplete tick), not a correctness problem. A
// permanently unreachable peer stalls the match indefinitely; there is no
// automatic peer replacement or replay.
type Transport interface {
	// Start begins signaling/handshake for the session. It returns once the
	// handshake is underway; readiness is reported via OnReady.
	Start(ctx context.Context, sess Session) error

	// OnCommand registers the handler invoked once per remote command.
	// Register before Start.
	OnCommand(func(command.Command))

	// OnReady registers the handler invoked once when the mesh is usable for
	// sending. Not necessarily when every peer is connected; degraded
	// operation is representable. Register before Start.
	OnReady(func())

	IsReady() bool

	// Send broadcasts cmd to all known peers without blocking on
	// acknowledgment.
	Send(ctx context.Context, cmd command.Command) error

	// Close releases all peer resources. Subsequent sends are no-ops.
	Close() error

	Stats() Stats
}
