package transport

import (
	"strings"
	"testing"

	"github.com/sol-rts/netcore/internal/domain/command"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []command.Command{
		{Tick: 0, ParticipantID: "p1", Type: command.TypeMoveUnits, Payload: command.MoveUnitsPayload{UnitIDs: []string{"u1"}, X: 10.5, Y: -3.2}},
		{Tick: 3, ParticipantID: "p2", Type: command.TypeBuildMirror, Payload: command.BuildMirrorPayload{X: 0, Y: 42.1}},
		{Tick: 9, ParticipantID: "p1", Type: command.TypeProduceUnit, Payload: command.ProduceUnitPayload{UnitType: "lancer", Qty: 3}},
		{Tick: 11, ParticipantID: "p3", Type: command.TypeAttackTarget, Payload: command.AttackTargetPayload{UnitIDs: []string{"u2", "u3"}, TargetID: "forge-1"}},
		{Tick: 12, ParticipantID: "p2", Type: command.TypeSetRally, Payload: command.SetRallyPayload{X: 7.7, Y: 8.8}},
		{Tick: 20, ParticipantID: "p1", Type: command.TypeNoop, Payload: command.NoopPayload{}},
	}
	for _, c := range cases {
		b, err := EncodeCommand(c)
		if err != nil {
			t.Fatalf("encode %s: %v", c.Type, err)
		}
		got, err := DecodeCommand(b)
		if err != nil {
			t.Fatalf("decode %s: %v", c.Type, err)
		}
		if got.Tick != c.Tick || got.ParticipantID != c.ParticipantID || got.Type != c.Type {
			t.Fatalf("envelope mismatch for %s: %+v vs %+v", c.Type, got, c)
		}
		if got.Payload != nil && c.Payload != nil {
			switch want := c.Payload.(type) {
			case command.ProduceUnitPayload:
				if got.Payload.(command.ProduceUnitPayload) != want {
					t.Fatalf("payload mismatch: %+v vs %+v", got.Payload, want)
				}
			case command.BuildMirrorPayload:
				if got.Payload.(command.BuildMirrorPayload) != want {
					t.Fatalf("payload mismatch: %+v vs %+v", got.Payload, want)
				}
			case command.SetRallyPayload:
				if got.Payload.(command.SetRallyPayload) != want {
					t.Fatalf("payload mismatch: %+v vs %+v", got.Payload, want)
				}
			}
		}
	}
}

func TestEncodeAbbreviatesAndRounds(t *testing.T) {
	c := command.Command{
		Tick:          5,
		ParticipantID: "p1",
		Type:          command.TypeMoveUnits,
		Payload:       command.MoveUnitsPayload{UnitIDs: []string{"u1"}, X: 10.5499, Y: -3.25001},
	}
	b, err := EncodeCommand(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"c":"mv"`) {
		t.Fatalf("expected abbreviated type code, got %s", s)
	}
	if strings.Contains(s, "move_units") {
		t.Fatalf("full type name leaked onto the wire: %s", s)
	}

	got, err := DecodeCommand(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := got.Payload.(command.MoveUnitsPayload)
	if p.X != 10.5 || p.Y != -3.3 {
		t.Fatalf("expected coordinates rounded to one decimal, got %v,%v", p.X, p.Y)
	}
	if got.Tick != 5 || got.ParticipantID != "p1" {
		t.Fatal("tick/participantId must never be altered by the codec")
	}
}

func TestDecodeRejectsUnknownCode(t *testing.T) {
	if _, err := DecodeCommand([]byte(`{"t":1,"p":"p1","c":"zz"}`)); err == nil {
		t.Fatal("expected error for unknown wire code")
	}
}

func TestEncodeRejectsUnknownType(t *testing.T) {
	c := command.Command{Tick: 1, ParticipantID: "p1", Type: "warp_drive", Payload: command.UnknownPayload{}}
	if _, err := EncodeCommand(c); err == nil {
		t.Fatal("expected error for unknown command type")
	}
}
