package auth

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nicedig/ndm/internal/bus"
)

// State represents the signed-in state of the current user.
type State string

const (
	Unknown              State = "UNKNOWN"
	SignedOut            State = "SIGNED_OUT"
	VerificationRequired State = "VERIFICATION_REQUIRED"
	Ready                State = "READY"
	Error                State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Unknown:              {SignedOut, VerificationRequired, Ready, Error},
	SignedOut:            {VerificationRequired, Ready, Error},
	VerificationRequired: {Ready, SignedOut, Error},
	Ready:                {SignedOut, VerificationRequired, Error},
	Error:                {Unknown, SignedOut, VerificationRequired, Ready},
}

// LoggedIn reports whether the state has an authenticated user.
func (s State) LoggedIn() bool {
	return s == VerificationRequired || s == Ready
}

// Verified reports whether the user finished account verification.
func (s State) Verified() bool {
	return s == Ready
}

// Machine tracks and enforces auth state transitions.
type Machine struct {
	// seq serializes transitions with observer delivery so observers see
	// every state in order.
	seq       sync.Mutex
	mu        sync.RWMutex
	current   State
	bus       *bus.Bus
	observers map[int]func(State)
	nextObs   int
}

// NewMachine creates a new state machine starting in Unknown state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Unknown,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Moving to the current state is
// a no-op. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.seq.Lock()
	defer m.seq.Unlock()

	m.mu.Lock()
	if m.current == to {
		m.mu.Unlock()
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	m.mu.Unlock()

	m.bus.Publish(bus.NewEvent(bus.KindSessionStatusChanged, StatusChange{
		From: from,
		To:   to,
	}))
	for _, fn := range m.observers {
		fn(to)
	}
	return nil
}

// Observe calls fn with the current state and then synchronously with every
// new state until the returned function is called. fn must not call
// Transition.
func (m *Machine) Observe(fn func(State)) (stop func()) {
	m.seq.Lock()
	defer m.seq.Unlock()
	if m.observers == nil {
		m.observers = make(map[int]func(State))
	}
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	fn(m.Current())
	return func() {
		m.seq.Lock()
		delete(m.observers, id)
		m.seq.Unlock()
	}
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
