package lockstep

import (
	"math/rand"
	"testing"

	"github.com/sol-rts/netcore/internal/domain/command"
)

// Two independent queue+RNG instances fed the same command set in different
// arrival interleavings must release identical batches tick for tick and
// produce identical RNG sequences when driven by the same call pattern.
func TestQueueDeterminismAcrossArrivalOrders(t *testing.T) {
	roster := []string{"p1", "p2", "p3"}
	const ticks = 20

	var all []command.Command
	for tick := uint64(0); tick < ticks; tick++ {
		for i, pid := range roster {
			all = append(all, cmd(tick, pid, command.TypeNoop))
			if int(tick)%len(roster) == i {
				all = append(all, cmd(tick, pid, command.TypeBuildMirror))
			}
		}
	}

	// Shuffle arrival order for the second instance with a fixed test seed;
	// the released order must not change.
	shuffled := make([]command.Command, len(all))
	copy(shuffled, all)
	shuffleRng := rand.New(rand.NewSource(99))
	shuffleRng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	q1 := NewCommandQueue(roster)
	q2 := NewCommandQueue(roster)
	for _, c := range all {
		mustAdd(t, q1, c)
	}
	for _, c := range shuffled {
		mustAdd(t, q2, c)
	}

	rng1 := NewRNG(12345)
	rng2 := NewRNG(12345)

	for tick := uint64(0); tick < ticks; tick++ {
		b1, ok1 := q1.NextBatch()
		b2, ok2 := q2.NextBatch()
		if !ok1 || !ok2 {
			t.Fatalf("tick %d: expected both ready, got %v/%v", tick, ok1, ok2)
		}
		if len(b1) != len(b2) {
			t.Fatalf("tick %d: batch sizes differ: %d vs %d", tick, len(b1), len(b2))
		}
		for i := range b1 {
			if b1[i].ParticipantID != b2[i].ParticipantID || b1[i].Type != b2[i].Type || b1[i].Tick != b2[i].Tick {
				t.Fatalf("tick %d position %d: %+v vs %+v", tick, i, b1[i], b2[i])
			}
			// Drive the RNG once per command, as a simulation would.
			if rng1.Int(1, 6) != rng2.Int(1, 6) {
				t.Fatalf("tick %d: RNG sequences diverged", tick)
			}
		}
		q1.Advance()
		q2.Advance()
	}
}

func TestRNGSameSeedSameSequence(t *testing.T) {
	a := NewRNG(12345)
	b := NewRNG(12345)
	for i := 0; i < 5; i++ {
		av, bv := a.Int(1, 6), b.Int(1, 6)
		if av != bv {
			t.Fatalf("call %d: %d vs %d", i, av, bv)
		}
		if av < 1 || av > 6 {
			t.Fatalf("call %d: %d out of [1,6]", i, av)
		}
	}
	for i := 0; i < 5; i++ {
		af, bf := a.Float(-1, 1), b.Float(-1, 1)
		if af != bf {
			t.Fatalf("float call %d: %v vs %v", i, af, bf)
		}
		if af < -1 || af >= 1 {
			t.Fatalf("float call %d: %v out of [-1,1)", i, af)
		}
	}
}

func TestRNGDifferentSeedsDiverge(t *testing.T) {
	a := NewRNG(1)
	b := NewRNG(2)
	same := true
	for i := 0; i < 16; i++ {
		if a.Int(0, 1<<30) != b.Int(0, 1<<30) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical 16-value prefix")
	}
}

func TestRNGDegenerateRanges(t *testing.T) {
	r := NewRNG(7)
	if got := r.Int(5, 5); got != 5 {
		t.Fatalf("Int(5,5) = %d", got)
	}
	if got := r.Int(9, 3); got != 9 {
		t.Fatalf("Int(9,3) = %d", got)
	}
	if got := r.Float(2.5, 2.5); got != 2.5 {
		t.Fatalf("Float(2.5,2.5) = %v", got)
	}
}
