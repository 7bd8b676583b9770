package transport

import (
	"encoding/json"
	"fmt"

	"github.com/sol-rts/netcore/internal/domain/command"
)

// Compact wire form: command types travel as fixed two-letter codes and
// coordinate fields are rounded to one decimal place via command.Canonical.
// Both transformations are exact inverses on canonical commands; tick and
// participantId are never altered.

var typeToCode = map[command.Type]string{
	command.TypeMoveUnits:    "mv",
	command.TypeBuildMirror:  "bm",
	command.TypeProduceUnit:  "pu",
	command.TypeAttackTarget: "at",
	command.TypeSetRally:     "sr",
	command.TypeNoop:         "np",
}

var codeToType = func() map[string]command.Type {
	m := make(map[string]command.Type, len(typeToCode))
	for t, c := range typeToCode {
		m[c] = t
	}
	return m
}()

type wireFrame struct {
	Tick          uint64          `json:"t"`
	ParticipantID string          `json:"p"`
	Code          string          `json:"c"`
	Payload       json.RawMessage `json:"d,omitempty"`
}

// EncodeCommand encodes cmd into its compact wire form. Commands with
// unknown types cannot be encoded; the validator rejects them before they
// reach a transport.
func EncodeCommand(cmd command.Command) ([]byte, error) {
	code, ok := typeToCode[cmd.Type]
	if !ok {
		return nil, fmt.Errorf("no wire code for command type %q", cmd.Type)
	}
	payload, err := json.Marshal(command.Canonical(cmd).Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFrame{
		Tick:          cmd.Tick,
		ParticipantID: cmd.ParticipantID,
		Code:          code,
		Payload:       payload,
	})
}

// DecodeCommand decodes a compact wire frame back into a command.
func DecodeCommand(data []byte) (command.Command, error) {
	var f wireFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return command.Command{}, err
	}
	t, ok := codeToType[f.Code]
	if !ok {
		return command.Command{}, fmt.Errorf("unknown wire code %q", f.Code)
	}
	payload, err := command.DecodePayload(t, f.Payload)
	if err != nil {
		return command.Command{}, err
	}
	return command.Command{
		Tick:          f.Tick,
		ParticipantID: f.ParticipantID,
		Type:          t,
		Payload:       payload,
	}, nil
}
