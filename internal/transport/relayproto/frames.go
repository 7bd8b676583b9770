// Package relayproto defines the framing spoken between peers and the relay
// over a match room websocket. Command payloads travel in their compact wire
// form; the relay never inspects them.
package relayproto

import (
	"encoding/json"
	"errors"
)

// FrameType discriminates relay frames.
type FrameType string

const (
	// FrameWelcome is sent by the relay once on join, carrying the current
	// room roster. Receiving it means the room is usable for sending.
	FrameWelcome FrameType = "welcome"

	// FramePeerJoined and FramePeerLeft notify room membership changes.
	FramePeerJoined FrameType = "peer_joined"
	FramePeerLeft   FrameType = "peer_left"

	// FrameCommand carries one encoded command, peer -> relay -> other peers.
	FrameCommand FrameType = "cmd"
)

// Frame is the relay room envelope.
type Frame struct {
	Type          FrameType       `json:"type"`
	ParticipantID string          `json:"participantId,omitempty"`
	Participants  []string        `json:"participants,omitempty"`
	Command       json.RawMessage `json:"command,omitempty"`
}

// Validate checks required fields per frame type.
func (f Frame) Validate() error {
	switch f.Type {
	case FrameWelcome:
		return nil
	case FramePeerJoined, FramePeerLeft:
		if f.ParticipantID == "" {
			return errors.New("participantId is required")
		}
		return nil
	case FrameCommand:
		if len(f.Command) == 0 {
			return errors.New("command is required")
		}
		return nil
	default:
		return errors.New("unsupported frame type")
	}
}
