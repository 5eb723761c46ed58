package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/poll"
)

type mockUnreadAPI struct {
	mu    sync.Mutex
	count int
	err   error
	calls int
}

func (m *mockUnreadAPI) FetchUnreadCount(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.count, m.err
}

func (m *mockUnreadAPI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitStarted(t *testing.T, m *poll.Manual) {
	t.Helper()
	select {
	case <-m.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("poll runner not started")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestGateClosedByDefault(t *testing.T) {
	api := &mockUnreadAPI{count: 3}
	c := NewCoordinator(api, poll.NewManual(), nil, nil)
	defer c.Stop()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.Calls() != 0 || c.Count() != 0 {
		t.Errorf("calls=%d count=%d, want no fetch while gate closed", api.Calls(), c.Count())
	}
}

func TestNotLoggedIn(t *testing.T) {
	api := &mockUnreadAPI{count: 3}
	trig := poll.NewManual()
	c := NewCoordinator(api, trig, nil, nil)
	defer c.Stop()

	c.SetGate(false, false)
	if c.Count() != 0 || c.Err() != nil || c.Active() {
		t.Errorf("count=%d err=%v active=%v", c.Count(), c.Err(), c.Active())
	}
	if trig.Running() != 0 || api.Calls() != 0 {
		t.Error("polling started while logged out")
	}
}

func TestNotVerified(t *testing.T) {
	api := &mockUnreadAPI{count: 3}
	trig := poll.NewManual()
	c := NewCoordinator(api, trig, nil, nil)
	defer c.Stop()

	c.SetGate(true, false)
	if !errors.Is(c.Err(), ErrVerificationRequired) {
		t.Errorf("Err() = %v, want ErrVerificationRequired", c.Err())
	}
	if c.Count() != 0 || trig.Running() != 0 || api.Calls() != 0 {
		t.Error("unverified gate should not poll")
	}
}

func TestGateOpenLoadsOnceThenPolls(t *testing.T) {
	api := &mockUnreadAPI{count: 4}
	trig := poll.NewManual()
	c := NewCoordinator(api, trig, nil, nil)
	defer c.Stop()

	c.SetGate(true, true)
	c.SetGate(true, true) // repeated gate is a no-op
	waitStarted(t, trig)

	if api.Calls() != 1 {
		t.Errorf("calls = %d, want exactly one initial load", api.Calls())
	}
	if c.Count() != 4 || c.Loading() {
		t.Errorf("count=%d loading=%v", c.Count(), c.Loading())
	}

	api.mu.Lock()
	api.count = 6
	api.mu.Unlock()
	if trig.Fire() != 1 {
		t.Fatal("expected one poll runner")
	}
	if c.Count() != 6 {
		t.Errorf("count = %d after tick, want 6", c.Count())
	}
}

func TestGateCloseStopsPolling(t *testing.T) {
	api := &mockUnreadAPI{count: 2}
	trig := poll.NewManual()
	c := NewCoordinator(api, trig, nil, nil)
	defer c.Stop()

	c.SetGate(true, true)
	waitStarted(t, trig)

	c.SetGate(true, false)
	waitFor(t, "poll stop", func() bool { return trig.Running() == 0 })
	calls := api.Calls()
	trig.Fire()
	if api.Calls() != calls {
		t.Error("tick after gate closed")
	}
	if c.Count() != 0 {
		t.Errorf("count = %d, want reset to 0", c.Count())
	}

	c.SetGate(true, true)
	waitStarted(t, trig)
	if api.Calls() != calls+1 {
		t.Errorf("calls = %d, want one visible load on reopen", api.Calls()-calls)
	}
}

func TestRefreshIsVisible(t *testing.T) {
	api := &mockUnreadAPI{count: 1}
	trig := poll.NewManual()
	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindUnreadChanged, 16)
	defer unsub()

	c := NewCoordinator(api, trig, b, nil)
	defer c.Stop()
	c.SetGate(true, true)
	waitStarted(t, trig)

	api.mu.Lock()
	api.count = 9
	api.mu.Unlock()
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Count() != 9 || c.Loading() {
		t.Errorf("count=%d loading=%v", c.Count(), c.Loading())
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no unread change published")
	}
}

func TestRefreshError(t *testing.T) {
	api := &mockUnreadAPI{}
	trig := poll.NewManual()
	c := NewCoordinator(api, trig, nil, nil)
	defer c.Stop()
	c.SetGate(true, true)
	waitStarted(t, trig)

	api.mu.Lock()
	api.err = errors.New("down")
	api.mu.Unlock()
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Err() == nil || c.Loading() {
		t.Errorf("err=%v loading=%v", c.Err(), c.Loading())
	}
}

func TestWatchSession(t *testing.T) {
	api := &mockUnreadAPI{count: 5}
	trig := poll.NewManual()
	c := NewCoordinator(api, trig, nil, nil)
	defer c.Stop()

	m := auth.NewMachine(nil)
	stop := c.WatchSession(m)
	defer stop()

	if err := m.Transition(auth.VerificationRequired); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(c.Err(), ErrVerificationRequired) {
		t.Errorf("err = %v, want ErrVerificationRequired", c.Err())
	}

	if err := m.Transition(auth.Ready); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, trig)
	waitFor(t, "count", func() bool { return c.Count() == 5 })

	// The gate closes before Transition returns, without a bus.
	if err := m.Transition(auth.SignedOut); err != nil {
		t.Fatal(err)
	}
	if c.Active() || c.Count() != 0 {
		t.Errorf("active = %v count = %d after sign out", c.Active(), c.Count())
	}
}

func TestWatchSessionAppliesCurrentState(t *testing.T) {
	m := auth.NewMachine(bus.New())
	if err := m.Transition(auth.Ready); err != nil {
		t.Fatal(err)
	}
	c := NewCoordinator(&mockUnreadAPI{count: 2}, poll.NewManual(), nil, nil)
	defer c.Stop()

	stop := c.WatchSession(m)
	if !c.Active() {
		t.Fatal("gate not opened from the current state")
	}
	stop()

	if err := m.Transition(auth.SignedOut); err != nil {
		t.Fatal(err)
	}
	if !c.Active() {
		t.Error("transition applied after stop")
	}
}
