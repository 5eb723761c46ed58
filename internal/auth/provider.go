// Package auth is the current-user provider: who is signed in and whether
// the account is verified.
package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/dmapi"
)

// UserSource loads the signed-in account.
type UserSource interface {
	HasToken() bool
	FetchCurrentUser(ctx context.Context) (*dmapi.User, error)
}

// Provider exposes current-user identity and the login/verification gate.
type Provider struct {
	src     UserSource
	machine *Machine
	logger  *zap.Logger

	mu   sync.RWMutex
	user *dmapi.User
}

// NewProvider creates a provider backed by src.
func NewProvider(src UserSource, machine *Machine, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{src: src, machine: machine, logger: logger}
}

// Load fetches the current user and moves the gate accordingly. A missing
// token or an HTTP 401 signs the user out without returning an error.
func (p *Provider) Load(ctx context.Context) error {
	if !p.src.HasToken() {
		p.setUser(nil)
		return p.machine.Transition(SignedOut)
	}

	u, err := p.src.FetchCurrentUser(ctx)
	if err != nil {
		if dmapi.IsUnauthorized(err) {
			p.logger.Info("token rejected, signed out")
			p.setUser(nil)
			return p.machine.Transition(SignedOut)
		}
		p.logger.Warn("failed to load current user", zap.Error(err))
		if tErr := p.machine.Transition(Error); tErr != nil {
			p.logger.Error("auth transition failed", zap.Error(tErr))
		}
		return err
	}

	p.setUser(u)
	if u.Verified() {
		return p.machine.Transition(Ready)
	}
	return p.machine.Transition(VerificationRequired)
}

func (p *Provider) setUser(u *dmapi.User) {
	p.mu.Lock()
	p.user = u
	p.mu.Unlock()
}

// User returns a copy of the current user, or nil.
func (p *Provider) User() *dmapi.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// CurrentUserID returns the signed-in user's id, or 0.
func (p *Provider) CurrentUserID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return 0
	}
	return p.user.ID
}

// State returns the gate state.
func (p *Provider) State() State { return p.machine.Current() }

// Observe follows the session state; see Machine.Observe.
func (p *Provider) Observe(fn func(State)) (stop func()) { return p.machine.Observe(fn) }

// IsLoggedIn reports whether a user is signed in.
func (p *Provider) IsLoggedIn() bool { return p.machine.Current().LoggedIn() }

// IsVerified reports whether the signed-in user is verified.
func (p *Provider) IsVerified() bool { return p.machine.Current().Verified() }
