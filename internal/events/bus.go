// Package events is the in-process publish/subscribe channel between the
// match coordinator and its consumers (UI, simulation driver). Dispatch
// iterates a snapshot of subscribers, so a handler unsubscribing itself
// mid-dispatch is well-defined.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sol-rts/netcore/internal/domain/command"
	"github.com/sol-rts/netcore/internal/domain/match"
)

// Kind discriminates event variants.
type Kind string

const (
	KindMatchCreated      Kind = "match_created"
	KindParticipantJoined Kind = "participant_joined"
	KindParticipantLeft   Kind = "participant_left"
	KindConnecting        Kind = "connecting"
	KindConnected         Kind = "connected"
	KindMatchStarted      Kind = "match_started"
	KindCommandReceived   Kind = "command_received"
	KindMatchEnded        Kind = "match_ended"
	KindError             Kind = "error"
)

// Event is the closed set of lifecycle and delivery notifications.
type Event interface {
	EventKind() Kind
}

type MatchCreated struct {
	Match *match.Match
}

type ParticipantJoined struct {
	Participant *match.Participant
}

type ParticipantLeft struct {
	Participant *match.Participant
}

type Connecting struct {
	MatchID uuid.UUID
}

type Connected struct {
	MatchID uuid.UUID
}

type MatchStarted struct {
	MatchID uuid.UUID
	Seed    int64
}

type CommandReceived struct {
	Command command.Command
}

type MatchEnded struct {
	MatchID uuid.UUID
	Reason  string
}

type Error struct {
	Kind   string
	Detail string
}

func (MatchCreated) EventKind() Kind      { return KindMatchCreated }
func (ParticipantJoined) EventKind() Kind { return KindParticipantJoined }
func (ParticipantLeft) EventKind() Kind   { return KindParticipantLeft }
func (Connecting) EventKind() Kind        { return KindConnecting }
func (Connected) EventKind() Kind         { return KindConnected }
func (MatchStarted) EventKind() Kind      { return KindMatchStarted }
func (CommandReceived) EventKind() Kind   { return KindCommandReceived }
func (MatchEnded) EventKind() Kind        { return KindMatchEnded }
func (Error) EventKind() Kind             { return KindError }

// Handler consumes one event. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(Event)

// Bus fans events out to per-kind subscriber lists.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler)}
}

// Subscribe registers h for events of the given kind and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	handlers := b.subs[kind]
	if handlers == nil {
		handlers = make(map[int]Handler)
		b.subs[kind] = handlers
	}
	handlers[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// Publish delivers e to every subscriber of its kind.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.subs[e.EventKind()]
	snapshot := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(e)
	}
}

// SubscriberCount reports how many handlers are registered for kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
