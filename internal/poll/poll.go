// Package poll provides the refresh triggers that drive background reloads.
package poll

import (
	"context"
	"sync"
	"time"
)

// Trigger decides when a background refresh runs. Run blocks, invoking tick
// for each refresh, until ctx is cancelled. tick must not be called after ctx
// is done.
type Trigger interface {
	Run(ctx context.Context, tick func(ctx context.Context))
}

// Interval fires every Every.
type Interval struct {
	Every time.Duration
}

// Run implements Trigger.
func (i Interval) Run(ctx context.Context, tick func(ctx context.Context)) {
	if i.Every <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(i.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Manual fires only when Fire is called. Used in tests and by push adapters.
type Manual struct {
	mu      sync.Mutex
	runners map[int]chan chan struct{}
	next    int
	started chan struct{}
}

// NewManual creates a Manual trigger.
func NewManual() *Manual {
	return &Manual{
		runners: make(map[int]chan chan struct{}),
		started: make(chan struct{}, 16),
	}
}

// Run implements Trigger.
func (m *Manual) Run(ctx context.Context, tick func(ctx context.Context)) {
	fire := make(chan chan struct{})
	m.mu.Lock()
	id := m.next
	m.next++
	m.runners[id] = fire
	m.mu.Unlock()

	select {
	case m.started <- struct{}{}:
	default:
	}

	defer func() {
		m.mu.Lock()
		delete(m.runners, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case done := <-fire:
			if ctx.Err() == nil {
				tick(ctx)
			}
			close(done)
		case <-ctx.Done():
			return
		}
	}
}

// Fire runs one tick on every active runner and waits for them to finish.
// It returns the number of runners that ticked.
func (m *Manual) Fire() int {
	m.mu.Lock()
	fires := make([]chan chan struct{}, 0, len(m.runners))
	for _, f := range m.runners {
		fires = append(fires, f)
	}
	m.mu.Unlock()

	n := 0
	for _, f := range fires {
		done := make(chan struct{})
		select {
		case f <- done:
			<-done
			n++
		case <-time.After(time.Second):
		}
	}
	return n
}

// Running returns the number of active runners.
func (m *Manual) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runners)
}

// Started returns a channel that receives once per Run call.
func (m *Manual) Started() <-chan struct{} {
	return m.started
}
