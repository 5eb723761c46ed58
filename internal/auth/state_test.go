package auth

import (
	"slices"
	"testing"

	"github.com/nicedig/ndm/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Unknown {
		t.Errorf("initial state = %s, want UNKNOWN", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Unknown, SignedOut},
		{Unknown, Ready},
		{SignedOut, VerificationRequired},
		{VerificationRequired, Ready},
		{Ready, SignedOut},
		{Error, Ready},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			if tt.from != Unknown {
				if err := m.Transition(tt.from); err != nil {
					t.Fatal(err)
				}
			}
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	_ = m.Transition(SignedOut)
	if err := m.Transition(Unknown); err == nil {
		t.Error("Transition(SIGNED_OUT -> UNKNOWN) should fail")
	}
}

func TestSameStateIsNoop(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	_ = m.Transition(Ready)
	<-ch
	if err := m.Transition(Ready); err != nil {
		t.Fatalf("Transition(READY -> READY) error = %v", err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %v", evt)
	default:
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(VerificationRequired); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindSessionStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindSessionStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Unknown || change.To != VerificationRequired {
		t.Errorf("change = %v -> %v", change.From, change.To)
	}
}

func TestGateHelpers(t *testing.T) {
	tests := []struct {
		state              State
		loggedIn, verified bool
	}{
		{Unknown, false, false},
		{SignedOut, false, false},
		{VerificationRequired, true, false},
		{Ready, true, true},
		{Error, false, false},
	}
	for _, tt := range tests {
		if tt.state.LoggedIn() != tt.loggedIn || tt.state.Verified() != tt.verified {
			t.Errorf("%s: LoggedIn=%v Verified=%v", tt.state, tt.state.LoggedIn(), tt.state.Verified())
		}
	}
}

func TestObserveSeesEveryState(t *testing.T) {
	// A full bus subscriber must not hide transitions from observers.
	b := bus.New()
	_, unsub := b.Subscribe(bus.KindSessionStatusChanged, 0)
	defer unsub()

	m := NewMachine(b)
	var seen []State
	stop := m.Observe(func(s State) { seen = append(seen, s) })

	for _, s := range []State{Ready, SignedOut, VerificationRequired, VerificationRequired} {
		if err := m.Transition(s); err != nil {
			t.Fatal(err)
		}
	}
	stop()
	if err := m.Transition(Ready); err != nil {
		t.Fatal(err)
	}

	want := []State{Unknown, Ready, SignedOut, VerificationRequired}
	if !slices.Equal(seen, want) {
		t.Errorf("observed %v, want %v", seen, want)
	}
}
