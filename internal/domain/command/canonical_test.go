package command

import "testing"

func TestCanonicalRoundsCoordinatePayloads(t *testing.T) {
	cases := []struct {
		name string
		in   Payload
		want Payload
	}{
		{
			"move",
			MoveUnitsPayload{UnitIDs: []string{"u1"}, X: 10.5499, Y: -3.25001},
			MoveUnitsPayload{UnitIDs: []string{"u1"}, X: 10.5, Y: -3.3},
		},
		{
			"build mirror",
			BuildMirrorPayload{X: 0.04, Y: 99.96},
			BuildMirrorPayload{X: 0, Y: 100},
		},
		{
			"set rally",
			SetRallyPayload{X: 7.75, Y: -7.75},
			SetRallyPayload{X: 7.8, Y: -7.8},
		},
	}
	for _, tc := range cases {
		got := Canonical(Command{Tick: 4, ParticipantID: "p1", Payload: tc.in})
		if got.Tick != 4 || got.ParticipantID != "p1" {
			t.Fatalf("%s: tick/participantId must not change", tc.name)
		}
		switch want := tc.want.(type) {
		case MoveUnitsPayload:
			p := got.Payload.(MoveUnitsPayload)
			if p.X != want.X || p.Y != want.Y {
				t.Fatalf("%s: got (%v,%v), want (%v,%v)", tc.name, p.X, p.Y, want.X, want.Y)
			}
		case BuildMirrorPayload:
			if got.Payload.(BuildMirrorPayload) != want {
				t.Fatalf("%s: got %+v, want %+v", tc.name, got.Payload, want)
			}
		case SetRallyPayload:
			if got.Payload.(SetRallyPayload) != want {
				t.Fatalf("%s: got %+v, want %+v", tc.name, got.Payload, want)
			}
		}
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	c := Canonical(Command{Type: TypeMoveUnits, Payload: MoveUnitsPayload{UnitIDs: []string{"u1"}, X: 3.14159, Y: 2.71828}})
	again := Canonical(c)
	if c.Payload != nil {
		p1 := c.Payload.(MoveUnitsPayload)
		p2 := again.Payload.(MoveUnitsPayload)
		if p1.X != p2.X || p1.Y != p2.Y {
			t.Fatalf("canonicalizing twice changed coordinates: (%v,%v) vs (%v,%v)", p1.X, p1.Y, p2.X, p2.Y)
		}
	}
}

func TestCanonicalLeavesOtherPayloadsAlone(t *testing.T) {
	in := Command{Type: TypeProduceUnit, Payload: ProduceUnitPayload{UnitType: "seeker", Qty: 3}}
	if got := Canonical(in); got.Payload.(ProduceUnitPayload) != in.Payload.(ProduceUnitPayload) {
		t.Fatalf("non-coordinate payload altered: %+v", got.Payload)
	}
}
