// Package relay implements the server side of match rooms: it fans command
// frames out to every other room member and announces membership changes.
// The relay holds no match or simulation state; matches live in postgres and
// ticks live on the peers.
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sol-rts/netcore/internal/transport/relayproto"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Hub manages relay rooms keyed by match id.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[string]*client
	logger zerolog.Logger
}

type client struct {
	participantID string
	conn          *websocket.Conn
	send          chan []byte
	once          sync.Once
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*client),
		logger: logger.With().Str("component", "relay").Logger(),
	}
}

// Serve runs a participant's room session on conn and blocks until the
// connection drops. It registers the client, announces the join, relays its
// command frames, and announces the leave on exit.
func (h *Hub) Serve(matchID uuid.UUID, participantID string, conn *websocket.Conn) {
	c := &client{
		participantID: participantID,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
	}

	roster := h.register(matchID, c)
	go c.writePump()

	welcome, _ := json.Marshal(relayproto.Frame{
		Type:         relayproto.FrameWelcome,
		Participants: roster,
	})
	c.trySend(welcome)

	joined, _ := json.Marshal(relayproto.Frame{
		Type:          relayproto.FramePeerJoined,
		ParticipantID: participantID,
	})
	h.broadcast(matchID, participantID, joined)

	h.logger.Info().
		Str("match_id", matchID.String()).
		Str("participant_id", participantID).
		Msg("participant connected")

	h.readPump(matchID, c)

	h.unregister(matchID, c)
	left, _ := json.Marshal(relayproto.Frame{
		Type:          relayproto.FramePeerLeft,
		ParticipantID: participantID,
	})
	h.broadcast(matchID, participantID, left)

	h.logger.Info().
		Str("match_id", matchID.String()).
		Str("participant_id", participantID).
		Msg("participant disconnected")
}

// RoomSize reports the number of connected participants in a match room.
func (h *Hub) RoomSize(matchID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[matchID])
}

// Stop closes every client in every room.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room {
			c.close()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) register(matchID uuid.UUID, c *client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[matchID]
	if room == nil {
		room = make(map[string]*client)
		h.rooms[matchID] = room
	}
	if prev, ok := room[c.participantID]; ok {
		prev.close()
	}
	room[c.participantID] = c

	roster := make([]string, 0, len(room))
	for pid := range room {
		roster = append(roster, pid)
	}
	return roster
}

func (h *Hub) unregister(matchID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[matchID]
	if room != nil && room[c.participantID] == c {
		delete(room, c.participantID)
		if len(room) == 0 {
			delete(h.rooms, matchID)
		}
	}
	c.close()
}

// broadcast fans a raw frame out to every room member except the sender.
func (h *Hub) broadcast(matchID uuid.UUID, from string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for pid, c := range h.rooms[matchID] {
		if pid == from {
			continue
		}
		if !c.trySend(msg) {
			h.logger.Warn().
				Str("match_id", matchID.String()).
				Str("participant_id", pid).
				Msg("send buffer full, dropping frame")
		}
	}
}

func (h *Hub) readPump(matchID uuid.UUID, c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame relayproto.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Debug().Err(err).Msg("dropping unparseable frame")
			continue
		}
		if frame.Type != relayproto.FrameCommand {
			h.logger.Debug().
				Str("type", string(frame.Type)).
				Msg("dropping unexpected client frame")
			continue
		}
		if err := frame.Validate(); err != nil {
			h.logger.Debug().Err(err).Msg("dropping malformed command frame")
			continue
		}
		h.broadcast(matchID, c.participantID, data)
	}
}

func (c *client) writePump() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) trySend(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
