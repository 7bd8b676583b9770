package lockstep

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sol-rts/netcore/internal/domain/command"
)

var (
	// ErrStaleCommand rejects commands for ticks the cursor has passed.
	// Expected under network jitter; callers drop and log, never fail hard.
	ErrStaleCommand = errors.New("stale command for released tick")

	// ErrUnknownParticipant rejects commands from outside the fixed roster.
	ErrUnknownParticipant = errors.New("command from unknown participant")
)

// CommandQueue turns unordered per-peer command arrivals into complete,
// deterministically ordered per-tick batches. Release is gated on every
// known participant having submitted for the cursor tick; no timeout is
// applied, so a silent peer stalls release rather than corrupting order.
// The participant roster is fixed for the queue's lifetime.
type CommandQueue struct {
	mu           sync.Mutex
	participants []string
	ticks        map[uint64]map[string][]command.Command
	submitted    map[uint64]map[string]struct{}
	cursor       uint64
}

// QueueStats is a diagnostic snapshot. Never consumed for correctness.
type QueueStats struct {
	CurrentTick    uint64         `json:"currentTick"`
	QueuedTicks    int            `json:"queuedTicks"`
	PerParticipant map[string]int `json:"perParticipantBacklog"`
}

// NewCommandQueue creates a queue for the given fixed roster. The roster is
// copied and sorted; batch order follows this sorted order.
func NewCommandQueue(participantIDs []string) *CommandQueue {
	ids := make([]string, len(participantIDs))
	copy(ids, participantIDs)
	sort.Strings(ids)
	return &CommandQueue{
		participants: ids,
		ticks:        make(map[uint64]map[string][]command.Command),
		submitted:    make(map[uint64]map[string]struct{}),
	}
}

// Add appends cmd under (tick, participantId) and marks the participant as
// submitted for that tick. Commands for ticks before the cursor are rejected
// with ErrStaleCommand.
func (q *CommandQueue) Add(cmd command.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cmd.Tick < q.cursor {
		return fmt.Errorf("%w: tick %d < cursor %d", ErrStaleCommand, cmd.Tick, q.cursor)
	}
	if !q.knownLocked(cmd.ParticipantID) {
		return fmt.Errorf("%w: %q", ErrUnknownParticipant, cmd.ParticipantID)
	}

	slot := q.ticks[cmd.Tick]
	if slot == nil {
		slot = make(map[string][]command.Command)
		q.ticks[cmd.Tick] = slot
	}
	slot[cmd.ParticipantID] = append(slot[cmd.ParticipantID], cmd)
	q.markSubmittedLocked(cmd.Tick, cmd.ParticipantID)
	return nil
}

// MarkSubmitted records an empty contribution: the participant did nothing
// this tick but the tick can still close for them.
func (q *CommandQueue) MarkSubmitted(tick uint64, participantID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if tick < q.cursor {
		return fmt.Errorf("%w: tick %d < cursor %d", ErrStaleCommand, tick, q.cursor)
	}
	if !q.knownLocked(participantID) {
		return fmt.Errorf("%w: %q", ErrUnknownParticipant, participantID)
	}
	q.markSubmittedLocked(tick, participantID)
	return nil
}

// NextBatch returns the cursor tick's commands once every participant has a
// submission recorded for it. The second return is false while the tick is
// incomplete. Order: participantId ascending, per-participant submission
// order preserved. The cursor does not advance; callers copy-own the result.
func (q *CommandQueue) NextBatch() ([]command.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs := q.submitted[q.cursor]
	if len(subs) < len(q.participants) {
		return nil, false
	}

	slot := q.ticks[q.cursor]
	batch := make([]command.Command, 0)
	for _, pid := range q.participants {
		batch = append(batch, slot[pid]...)
	}
	return batch, true
}

// Advance moves the release cursor forward one tick and evicts the released
// tick's storage. Call exactly once per successfully retrieved batch.
func (q *CommandQueue) Advance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.ticks, q.cursor)
	delete(q.submitted, q.cursor)
	q.cursor++
}

// CurrentTick returns the release cursor.
func (q *CommandQueue) CurrentTick() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// Participants returns the sorted roster.
func (q *CommandQueue) Participants() []string {
	out := make([]string, len(q.participants))
	copy(out, q.participants)
	return out
}

// Stats returns a diagnostic snapshot of queue depth and per-participant
// backlog (buffered commands across unreleased ticks).
func (q *CommandQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	backlog := make(map[string]int, len(q.participants))
	for _, pid := range q.participants {
		backlog[pid] = 0
	}
	for _, slot := range q.ticks {
		for pid, cmds := range slot {
			backlog[pid] += len(cmds)
		}
	}
	return QueueStats{
		CurrentTick:    q.cursor,
		QueuedTicks:    len(q.ticks),
		PerParticipant: backlog,
	}
}

// Clear releases all buffered state. Used on match end.
func (q *CommandQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ticks = make(map[uint64]map[string][]command.Command)
	q.submitted = make(map[uint64]map[string]struct{})
}

func (q *CommandQueue) knownLocked(participantID string) bool {
	for _, pid := range q.participants {
		if pid == participantID {
			return true
		}
	}
	return false
}

func (q *CommandQueue) markSubmittedLocked(tick uint64, participantID string) {
	subs := q.submitted[tick]
	if subs == nil {
		subs = make(map[string]struct{}, len(q.participants))
		q.submitted[tick] = subs
	}
	subs[participantID] = struct{}{}
}
