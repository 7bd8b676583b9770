package lockstep

import (
	"errors"
	"testing"

	"github.com/sol-rts/netcore/internal/domain/command"
)

func cmd(tick uint64, pid string, t command.Type) command.Command {
	var p command.Payload = command.NoopPayload{}
	switch t {
	case command.TypeBuildMirror:
		p = command.BuildMirrorPayload{X: 1, Y: 2}
	case command.TypeProduceUnit:
		p = command.ProduceUnitPayload{UnitType: "lancer", Qty: 1}
	}
	return command.Command{Tick: tick, ParticipantID: pid, Type: t, Payload: p}
}

func TestNextBatchGatesOnAllParticipants(t *testing.T) {
	q := NewCommandQueue([]string{"p1", "p2"})

	if err := q.Add(cmd(0, "p1", command.TypeNoop)); err != nil {
		t.Fatalf("add p1: %v", err)
	}
	if _, ok := q.NextBatch(); ok {
		t.Fatal("expected NotReady with only p1 submitted")
	}

	if err := q.Add(cmd(0, "p2", command.TypeBuildMirror)); err != nil {
		t.Fatalf("add p2: %v", err)
	}
	batch, ok := q.NextBatch()
	if !ok {
		t.Fatal("expected ready batch once both submitted")
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(batch))
	}
	if batch[0].ParticipantID != "p1" || batch[1].ParticipantID != "p2" {
		t.Fatalf("expected [p1 p2] order, got [%s %s]", batch[0].ParticipantID, batch[1].ParticipantID)
	}
}

func TestBatchOrderIndependentOfArrival(t *testing.T) {
	q := NewCommandQueue([]string{"c", "a", "b"})

	// Arrival order deliberately scrambled.
	mustAdd(t, q, cmd(0, "b", command.TypeNoop))
	mustAdd(t, q, cmd(0, "c", command.TypeProduceUnit))
	mustAdd(t, q, cmd(0, "c", command.TypeNoop))
	mustAdd(t, q, cmd(0, "a", command.TypeBuildMirror))

	batch, ok := q.NextBatch()
	if !ok {
		t.Fatal("expected ready batch")
	}
	want := []struct {
		pid string
		typ command.Type
	}{
		{"a", command.TypeBuildMirror},
		{"b", command.TypeNoop},
		{"c", command.TypeProduceUnit},
		{"c", command.TypeNoop},
	}
	if len(batch) != len(want) {
		t.Fatalf("expected %d commands, got %d", len(want), len(batch))
	}
	for i, w := range want {
		if batch[i].ParticipantID != w.pid || batch[i].Type != w.typ {
			t.Fatalf("position %d: expected %s/%s, got %s/%s", i, w.pid, w.typ, batch[i].ParticipantID, batch[i].Type)
		}
	}
}

func TestFutureTickNeverReleasesEarlierTick(t *testing.T) {
	q := NewCommandQueue([]string{"p1", "p2"})
	mustAdd(t, q, cmd(0, "p1", command.TypeNoop))
	mustAdd(t, q, cmd(3, "p2", command.TypeNoop))
	mustAdd(t, q, cmd(3, "p1", command.TypeNoop))

	if _, ok := q.NextBatch(); ok {
		t.Fatal("tick 0 incomplete; future submissions must not release it")
	}
}

func TestStaleCommandRejectedAfterAdvance(t *testing.T) {
	q := NewCommandQueue([]string{"p1", "p2"})
	mustAdd(t, q, cmd(0, "p1", command.TypeNoop))
	mustAdd(t, q, cmd(0, "p2", command.TypeNoop))
	if _, ok := q.NextBatch(); !ok {
		t.Fatal("expected tick 0 ready")
	}
	q.Advance()

	err := q.Add(cmd(0, "p1", command.TypeBuildMirror))
	if err == nil {
		t.Fatal("expected stale rejection for released tick")
	}
	if !errors.Is(err, ErrStaleCommand) {
		t.Fatalf("expected ErrStaleCommand, got %v", err)
	}

	// The dropped command must not surface in any later batch.
	mustAdd(t, q, cmd(1, "p1", command.TypeNoop))
	mustAdd(t, q, cmd(1, "p2", command.TypeNoop))
	batch, ok := q.NextBatch()
	if !ok {
		t.Fatal("expected tick 1 ready")
	}
	for _, c := range batch {
		if c.Tick != 1 {
			t.Fatalf("released batch leaked tick %d command", c.Tick)
		}
	}
}

func TestMarkSubmittedRepresentsEmptyContribution(t *testing.T) {
	q := NewCommandQueue([]string{"p1", "p2"})
	mustAdd(t, q, cmd(0, "p1", command.TypeBuildMirror))
	if err := q.MarkSubmitted(0, "p2"); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	batch, ok := q.NextBatch()
	if !ok {
		t.Fatal("expected ready after empty contribution")
	}
	if len(batch) != 1 || batch[0].ParticipantID != "p1" {
		t.Fatalf("expected only p1's command, got %+v", batch)
	}
}

func TestUnknownParticipantRejected(t *testing.T) {
	q := NewCommandQueue([]string{"p1", "p2"})
	if err := q.Add(cmd(0, "intruder", command.TypeNoop)); err == nil {
		t.Fatal("expected rejection for unknown participant")
	}
}

func TestNextBatchDoesNotAdvanceCursor(t *testing.T) {
	q := NewCommandQueue([]string{"p1"})
	mustAdd(t, q, cmd(0, "p1", command.TypeNoop))

	b1, ok1 := q.NextBatch()
	b2, ok2 := q.NextBatch()
	if !ok1 || !ok2 {
		t.Fatal("repeated NextBatch must stay ready until Advance")
	}
	if len(b1) != len(b2) {
		t.Fatalf("repeated reads differ: %d vs %d", len(b1), len(b2))
	}
	if q.CurrentTick() != 0 {
		t.Fatalf("cursor moved without Advance: %d", q.CurrentTick())
	}
	q.Advance()
	if q.CurrentTick() != 1 {
		t.Fatalf("expected cursor 1 after Advance, got %d", q.CurrentTick())
	}
}

func TestStatsAndClear(t *testing.T) {
	q := NewCommandQueue([]string{"p1", "p2"})
	mustAdd(t, q, cmd(0, "p1", command.TypeNoop))
	mustAdd(t, q, cmd(2, "p1", command.TypeNoop))
	mustAdd(t, q, cmd(2, "p2", command.TypeNoop))

	st := q.Stats()
	if st.QueuedTicks != 2 {
		t.Fatalf("expected 2 queued ticks, got %d", st.QueuedTicks)
	}
	if st.PerParticipant["p1"] != 2 || st.PerParticipant["p2"] != 1 {
		t.Fatalf("unexpected backlog: %+v", st.PerParticipant)
	}

	q.Clear()
	st = q.Stats()
	if st.QueuedTicks != 0 {
		t.Fatalf("expected empty queue after clear, got %d ticks", st.QueuedTicks)
	}
	if _, ok := q.NextBatch(); ok {
		t.Fatal("cleared queue must not be ready")
	}
}

func mustAdd(t *testing.T, q *CommandQueue, c command.Command) {
	t.Helper()
	if err := q.Add(c); err != nil {
		t.Fatalf("add %s tick %d: %v", c.ParticipantID, c.Tick, err)
	}
}
