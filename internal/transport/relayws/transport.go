// Package relayws implements the transport contract over a relay-server
// websocket room. Every member of a match room receives every other member's
// command frames; the relay performs fan-out only and holds no match state.
package relayws

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sol-rts/netcore/internal/domain/command"
	"github.com/sol-rts/netcore/internal/transport"
	"github.com/sol-rts/netcore/internal/transport/relayproto"
)

const writeWait = 10 * time.Second

// Transport connects to a relay room and satisfies transport.Transport.
type Transport struct {
	relayURL string
	logger   zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	sess      transport.Session
	ready     bool
	closed    bool
	framesOut uint64
	peers     map[string]*peerState

	onCommand func(command.Command)
	onReady   func()
}

type peerState struct {
	connected    bool
	lastSeenTick uint64
	framesIn     uint64
	lastSeenAt   time.Time
}

// New creates a relay websocket transport. relayURL is the relay base URL,
// e.g. "ws://localhost:8080".
func New(relayURL string, logger zerolog.Logger) *Transport {
	return &Transport{
		relayURL: relayURL,
		logger:   logger.With().Str("component", "relayws").Logger(),
		peers:    make(map[string]*peerState),
	}
}

// OnCommand registers the remote-command handler. Register before Start.
func (t *Transport) OnCommand(h func(command.Command)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommand = h
}

// OnReady registers the readiness handler. Register before Start.
func (t *Transport) OnReady(h func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = h
}

// Start dials the relay room and begins the read loop. Readiness fires once
// the relay's welcome frame arrives.
func (t *Transport) Start(ctx context.Context, sess transport.Session) error {
	u, err := url.Parse(t.relayURL)
	if err != nil {
		return fmt.Errorf("invalid relay url: %w", err)
	}
	u.Path = fmt.Sprintf("/v1/matches/%s/ws", sess.MatchID)
	q := u.Query()
	q.Set("participant", sess.LocalParticipantID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("relay dial: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.sess = sess
	for _, pid := range sess.PeerIDs {
		if pid != sess.LocalParticipantID {
			t.peers[pid] = &peerState{}
		}
	}
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

// IsReady reports whether the room is usable for sending.
func (t *Transport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready && !t.closed
}

// Send broadcasts cmd to the room. Best-effort and ack-less; after Close it
// is a no-op.
func (t *Transport) Send(ctx context.Context, cmd command.Command) error {
	raw, err := transport.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.conn == nil {
		return nil
	}
	frame := relayproto.Frame{Type: relayproto.FrameCommand, Command: raw}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteJSON(frame); err != nil {
		t.logger.Warn().Err(err).Msg("send failed")
		return fmt.Errorf("relay send: %w", err)
	}
	t.framesOut++
	return nil
}

// Close releases the connection. Subsequent sends are no-ops; Close is
// idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.ready = false
	if t.conn != nil {
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match ended"),
			time.Now().Add(time.Second))
		return t.conn.Close()
	}
	return nil
}

// Stats returns a diagnostic snapshot.
func (t *Transport) Stats() transport.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	peers := make(map[string]transport.PeerStats, len(t.peers))
	now := time.Now()
	for pid, ps := range t.peers {
		var latency time.Duration
		if !ps.lastSeenAt.IsZero() {
			latency = now.Sub(ps.lastSeenAt)
		}
		peers[pid] = transport.PeerStats{
			Connected:    ps.connected,
			LastSeenTick: ps.lastSeenTick,
			FramesIn:     ps.framesIn,
			Latency:      latency,
		}
	}
	return transport.Stats{Ready: t.ready && !t.closed, FramesOut: t.framesOut, Peers: peers}
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		var frame relayproto.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.logger.Warn().Err(err).Msg("relay connection lost")
			}
			return
		}
		if err := frame.Validate(); err != nil {
			t.logger.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		t.handleFrame(frame)
	}
}

func (t *Transport) handleFrame(frame relayproto.Frame) {
	switch frame.Type {
	case relayproto.FrameWelcome:
		t.mu.Lock()
		first := !t.ready
		t.ready = true
		for _, pid := range frame.Participants {
			if pid == t.sess.LocalParticipantID {
				continue
			}
			if ps := t.peers[pid]; ps != nil {
				ps.connected = true
			}
		}
		onReady := t.onReady
		t.mu.Unlock()
		if first && onReady != nil {
			onReady()
		}

	case relayproto.FramePeerJoined, relayproto.FramePeerLeft:
		t.mu.Lock()
		if ps := t.peers[frame.ParticipantID]; ps != nil {
			ps.connected = frame.Type == relayproto.FramePeerJoined
		}
		t.mu.Unlock()

	case relayproto.FrameCommand:
		cmd, err := transport.DecodeCommand(frame.Command)
		if err != nil {
			t.logger.Debug().Err(err).Msg("dropping undecodable command frame")
			return
		}
		t.mu.Lock()
		if ps := t.peers[cmd.ParticipantID]; ps != nil {
			ps.connected = true
			ps.framesIn++
			ps.lastSeenAt = time.Now()
			if cmd.Tick > ps.lastSeenTick {
				ps.lastSeenTick = cmd.Tick
			}
		}
		onCommand := t.onCommand
		t.mu.Unlock()
		if onCommand != nil {
			onCommand(cmd)
		}
	}
}
