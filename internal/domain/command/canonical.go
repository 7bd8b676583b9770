package command

import "math"

// Canonical returns cmd with coordinate fields rounded to one decimal place,
// the precision commands carry on the wire. Callers must queue and broadcast
// the canonical form only: if the local queue held finer coordinates than the
// encoded frame, every remote queue would disagree with it on the same
// command. Tick and participantId are never altered.
func Canonical(cmd Command) Command {
	switch p := cmd.Payload.(type) {
	case MoveUnitsPayload:
		p.X, p.Y = round1(p.X), round1(p.Y)
		cmd.Payload = p
	case BuildMirrorPayload:
		p.X, p.Y = round1(p.X), round1(p.Y)
		cmd.Payload = p
	case SetRallyPayload:
		p.X, p.Y = round1(p.X), round1(p.Y)
		cmd.Payload = p
	}
	return cmd
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
