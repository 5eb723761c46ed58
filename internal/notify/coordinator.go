// Package notify keeps the process-wide unread DM count current.
package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/poll"
)

// ErrVerificationRequired is reported while the signed-in account is not
// verified.
var ErrVerificationRequired = errors.New("メールアドレスの認証が完了していません。認証後にメッセージをご利用いただけます。")

// UnreadAPI fetches the total unread count.
type UnreadAPI interface {
	FetchUnreadCount(ctx context.Context) (int, error)
}

// Coordinator polls the unread count while the user is logged in and
// verified.
type Coordinator struct {
	api     UnreadAPI
	trigger poll.Trigger
	bus     *bus.Bus
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu       sync.Mutex
	base     context.Context
	cancel   context.CancelFunc
	gen      uint64
	gateSet  bool
	loggedIn bool
	verified bool
	issued   uint64
	applied  uint64
	spinSeq  uint64
	count    int
	loading  bool
	err      error
}

// NewCoordinator creates a coordinator with the gate closed.
func NewCoordinator(api UnreadAPI, trigger poll.Trigger, b *bus.Bus, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		api:     api,
		trigger: trigger,
		bus:     b,
		logger:  logger,
		base:    context.Background(),
	}
}

// Start sets the parent context of polling.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()
}

// Stop tears down polling and waits for it to exit.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.mu.Unlock()
	c.wg.Wait()
}

// SetGate applies the login and verification signals. Polling runs iff both
// are true; opening the gate triggers one visible load. Repeating the current
// gate is a no-op.
func (c *Coordinator) SetGate(loggedIn, verified bool) {
	c.mu.Lock()
	if c.gateSet && c.loggedIn == loggedIn && c.verified == verified {
		c.mu.Unlock()
		return
	}
	c.gateSet = true
	c.loggedIn, c.verified = loggedIn, verified
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	gen := c.gen

	switch {
	case !loggedIn:
		c.count, c.err, c.loading = 0, nil, false
	case !verified:
		c.count, c.err, c.loading = 0, ErrVerificationRequired, false
	default:
		c.issued++
		c.spinSeq = c.issued
		c.loading = true
		ctx, cancel := context.WithCancel(c.base)
		c.cancel = cancel
		c.wg.Add(1)
		go c.run(ctx, gen, c.spinSeq)
	}
	c.mu.Unlock()

	c.logger.Info("unread gate changed", zap.Bool("logged_in", loggedIn), zap.Bool("verified", verified))
	c.changed()
}

func (c *Coordinator) run(ctx context.Context, gen, firstSeq uint64) {
	defer c.wg.Done()
	c.fetch(ctx, gen, firstSeq, true)
	c.trigger.Run(ctx, func(ctx context.Context) {
		seq, ok := c.begin(gen, false)
		if !ok {
			return
		}
		c.fetch(ctx, gen, seq, false)
	})
}

func (c *Coordinator) begin(gen uint64, visible bool) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || !c.loggedIn || !c.verified {
		return 0, false
	}
	c.issued++
	if visible {
		c.spinSeq = c.issued
		c.loading = true
	}
	return c.issued, true
}

func (c *Coordinator) fetch(ctx context.Context, gen, seq uint64, visible bool) error {
	n, err := c.api.FetchUnreadCount(ctx)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return err
	}
	if visible && seq == c.spinSeq {
		c.loading = false
	}
	if seq > c.applied {
		c.applied = seq
		if err != nil {
			c.err = err
		} else {
			c.count = max(n, 0)
			c.err = nil
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to fetch unread count", zap.Bool("visible", visible), zap.Error(err))
	}
	c.changed()
	return err
}

// Refresh performs a visible reload. It does nothing while the gate is
// closed.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	seq, ok := c.begin(gen, true)
	if !ok {
		return nil
	}
	c.changed()
	return c.fetch(ctx, gen, seq, true)
}

// SessionSource reports session state changes as they happen.
type SessionSource interface {
	Observe(fn func(auth.State)) (stop func())
}

// WatchSession applies the current session state as the gate and follows
// every later transition.
func (c *Coordinator) WatchSession(src SessionSource) (stop func()) {
	return src.Observe(func(s auth.State) {
		if s == auth.Unknown {
			return
		}
		c.SetGate(s.LoggedIn(), s.Verified())
	})
}

// Count returns the unread total.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Loading reports whether a visible load is in flight.
func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last error, or ErrVerificationRequired.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Active reports whether polling is enabled.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn && c.verified
}

func (c *Coordinator) changed() {
	c.bus.Publish(bus.NewEvent(bus.KindUnreadChanged, c.Count()))
}
