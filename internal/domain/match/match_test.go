package match

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusOpen, StatusConnecting, true},
		{StatusOpen, StatusEnded, true},
		{StatusOpen, StatusActive, false},
		{StatusConnecting, StatusActive, true},
		{StatusConnecting, StatusEnded, true},
		{StatusConnecting, StatusOpen, false},
		{StatusActive, StatusEnded, true},
		{StatusActive, StatusOpen, false},
		{StatusActive, StatusConnecting, false},
		{StatusEnded, StatusOpen, false},
		{StatusEnded, StatusActive, false},
	}
	for _, c := range cases {
		m := &Match{Status: c.from}
		if got := m.CanTransitionTo(c.to); got != c.allowed {
			t.Fatalf("transition %s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestTransitionMutatesOnlyWhenAllowed(t *testing.T) {
	m := &Match{Status: StatusOpen}
	if err := m.Transition(StatusConnecting); err != nil {
		t.Fatalf("expected open -> connecting to succeed: %v", err)
	}
	if m.Status != StatusConnecting {
		t.Fatalf("expected status CONNECTING, got %s", m.Status)
	}
	if err := m.Transition(StatusOpen); err == nil {
		t.Fatal("expected backward transition to fail")
	}
	if m.Status != StatusConnecting {
		t.Fatalf("failed transition must not mutate status, got %s", m.Status)
	}
}

func TestJoinable(t *testing.T) {
	for _, s := range []Status{StatusConnecting, StatusActive, StatusEnded} {
		m := &Match{Status: s}
		if m.Joinable() {
			t.Fatalf("expected %s match to be unjoinable", s)
		}
	}
	if !(&Match{Status: StatusOpen}).Joinable() {
		t.Fatal("expected open match to be joinable")
	}
}
