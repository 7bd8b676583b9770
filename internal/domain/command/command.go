package command

import (
	"encoding/json"
	"fmt"
)

// Type tags the supported command kinds.
type Type string

const (
	TypeMoveUnits    Type = "move_units"
	TypeBuildMirror  Type = "build_mirror"
	TypeProduceUnit  Type = "produce_unit"
	TypeAttackTarget Type = "attack_target"
	TypeSetRally     Type = "set_rally"
	TypeNoop         Type = "noop"
)

var validTypes = map[Type]struct{}{
	TypeMoveUnits:    {},
	TypeBuildMirror:  {},
	TypeProduceUnit:  {},
	TypeAttackTarget: {},
	TypeSetRally:     {},
	TypeNoop:         {},
}

// Known reports whether t is a supported command type.
func Known(t Type) bool {
	_, ok := validTypes[t]
	return ok
}

// Command is the unit of synchronization: one player action scheduled for
// one tick. Immutable once validated; ordering across peers is defined by
// (tick, participantId) only, never by arrival time.
type Command struct {
	Tick          uint64  `json:"tick"`
	ParticipantID string  `json:"participantId"`
	Type          Type    `json:"commandType"`
	Payload       Payload `json:"payload"`
}

// Payload is the closed set of typed command payloads. UnknownPayload
// preserves unrecognized payloads for forward compatibility; the validator
// rejects them before queueing.
type Payload interface {
	isPayload()
}

// MoveUnitsPayload orders units to a destination point.
type MoveUnitsPayload struct {
	UnitIDs []string `json:"unitIds"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
}

// BuildMirrorPayload places a solar mirror.
type BuildMirrorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ProduceUnitPayload queues unit production at the stellar forge.
type ProduceUnitPayload struct {
	UnitType string `json:"unitType"`
	Qty      int    `json:"qty"`
}

// AttackTargetPayload orders units to attack a target entity.
type AttackTargetPayload struct {
	UnitIDs  []string `json:"unitIds"`
	TargetID string   `json:"targetId"`
}

// SetRallyPayload sets the forge rally point.
type SetRallyPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NoopPayload is the explicit "did nothing this tick" marker. Senders batch
// one per tick so the queue can close the tick for this participant.
type NoopPayload struct{}

// UnknownPayload carries an unrecognized command type's raw payload.
type UnknownPayload struct {
	Raw json.RawMessage `json:"raw,omitempty"`
}

func (MoveUnitsPayload) isPayload()    {}
func (BuildMirrorPayload) isPayload()  {}
func (ProduceUnitPayload) isPayload()  {}
func (AttackTargetPayload) isPayload() {}
func (SetRallyPayload) isPayload()     {}
func (NoopPayload) isPayload()         {}
func (UnknownPayload) isPayload()      {}

type envelope struct {
	Tick          uint64          `json:"tick"`
	ParticipantID string          `json:"participantId"`
	Type          Type            `json:"commandType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the command with its typed payload inline.
func (c Command) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if c.Payload != nil {
		b, err := json.Marshal(c.Payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(envelope{
		Tick:          c.Tick,
		ParticipantID: c.ParticipantID,
		Type:          c.Type,
		Payload:       raw,
	})
}

// UnmarshalJSON decodes the envelope and dispatches the payload to its
// concrete variant. Unrecognized command types decode into UnknownPayload
// rather than failing.
func (c *Command) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	payload, err := DecodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}
	c.Tick = env.Tick
	c.ParticipantID = env.ParticipantID
	c.Type = env.Type
	c.Payload = payload
	return nil
}

// DecodePayload decodes a raw payload for the given command type.
func DecodePayload(t Type, raw json.RawMessage) (Payload, error) {
	switch t {
	case TypeMoveUnits:
		return decodeAs[MoveUnitsPayload](raw)
	case TypeBuildMirror:
		return decodeAs[BuildMirrorPayload](raw)
	case TypeProduceUnit:
		return decodeAs[ProduceUnitPayload](raw)
	case TypeAttackTarget:
		return decodeAs[AttackTargetPayload](raw)
	case TypeSetRally:
		return decodeAs[SetRallyPayload](raw)
	case TypeNoop:
		return NoopPayload{}, nil
	default:
		return UnknownPayload{Raw: raw}, nil
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var out T
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is required for %T", out)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
