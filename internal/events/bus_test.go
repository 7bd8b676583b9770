package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestPublishReachesOnlyMatchingKind(t *testing.T) {
	b := NewBus()
	var started, ended int
	b.Subscribe(KindMatchStarted, func(Event) { started++ })
	b.Subscribe(KindMatchEnded, func(Event) { ended++ })

	b.Publish(MatchStarted{MatchID: uuid.New(), Seed: 42})
	b.Publish(MatchStarted{MatchID: uuid.New(), Seed: 43})
	b.Publish(MatchEnded{MatchID: uuid.New(), Reason: "host left"})

	if started != 2 {
		t.Fatalf("expected 2 started events, got %d", started)
	}
	if ended != 1 {
		t.Fatalf("expected 1 ended event, got %d", ended)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	var n int
	off := b.Subscribe(KindConnected, func(Event) { n++ })

	b.Publish(Connected{})
	off()
	off() // second call is a no-op
	b.Publish(Connected{})

	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if got := b.SubscriberCount(KindConnected); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestHandlerMayUnsubscribeItselfMidDispatch(t *testing.T) {
	b := NewBus()
	var n int
	var off func()
	off = b.Subscribe(KindError, func(Event) {
		n++
		off()
	})
	b.Subscribe(KindError, func(Event) { n++ })

	b.Publish(Error{Kind: "transport", Detail: "peer lost"})
	b.Publish(Error{Kind: "transport", Detail: "peer lost"})

	// First publish hits both handlers; second only the survivor.
	if n != 3 {
		t.Fatalf("expected 3 deliveries, got %d", n)
	}
}

func TestEventPayloadDelivered(t *testing.T) {
	b := NewBus()
	var gotSeed int64
	b.Subscribe(KindMatchStarted, func(e Event) {
		gotSeed = e.(MatchStarted).Seed
	})
	b.Publish(MatchStarted{Seed: 12345})
	if gotSeed != 12345 {
		t.Fatalf("expected seed 12345, got %d", gotSeed)
	}
}
