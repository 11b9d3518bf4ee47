// Package session holds the per-session state the guards read: the user
// snapshot, whether it is still loading, and the session's organization store.
package session

import (
	"context"
	"sync"
	"time"

	"crm-console/internal/authz"
	"crm-console/internal/model"
	"crm-console/internal/notify"
	"crm-console/internal/organization"
)

// Snapshot is a read-only view of a Context.
type Snapshot struct {
	SessionID string
	User      *model.User
	Loading   bool
	// Settled is true once loading has finished at least once.
	Settled bool
	// Loads counts finished user loads; every Settle bumps it.
	Loads  uint64
	Err    string
	Closed bool
}

// Context is the state of one browser session. It is only mutated through
// its own methods.
type Context struct {
	id     string
	userID uint
	orgs   *organization.Store

	mu         sync.RWMutex
	user       *model.User
	loading    bool
	settled    bool
	loads      uint64
	expiresAt  time.Time
	err        string
	closed     bool
	derivedFor string

	changes notify.Registry[Snapshot]
}

// NewContext starts a session for userID with no user loaded yet.
func NewContext(id string, userID uint, orgs *organization.Store) *Context {
	return &Context{id: id, userID: userID, orgs: orgs}
}

func (c *Context) ID() string { return c.id }

func (c *Context) UserID() uint { return c.userID }

// Organizations returns the organization store of the session.
func (c *Context) Organizations() *organization.Store { return c.orgs }

// Snapshot returns the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		SessionID: c.id,
		User:      c.user,
		Loading:   c.loading,
		Settled:   c.settled,
		Loads:     c.loads,
		Err:       c.err,
		Closed:    c.closed,
	}
}

// Subscribe registers fn for every state change.
func (c *Context) Subscribe(fn func(Snapshot)) func() {
	return c.changes.Subscribe(fn)
}

// WatchDecision calls fn with the composite decision for spec now and after
// every change of the session.
func (c *Context) WatchDecision(spec authz.QuerySpec, fn func(allowed bool)) func() {
	stop := c.Subscribe(func(s Snapshot) {
		fn(authz.Decide(s.User, spec))
	})
	fn(authz.Decide(c.Snapshot().User, spec))
	return stop
}

// BeginLoading marks a user fetch as in flight.
func (c *Context) BeginLoading() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.mu.Unlock()
	c.publish()
}

// Settle ends a user fetch. On failure the previous user is kept and the
// error recorded. A closed context ignores late results.
func (c *Context) Settle(u *model.User, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loads++
	c.loading = false
	c.settled = true
	if err != nil {
		c.err = err.Error()
	} else {
		c.user = u
		c.err = ""
	}
	c.mu.Unlock()
	c.publish()
}

// ExpireAt records when the session's token stops being valid. Later calls
// only extend it.
func (c *Context) ExpireAt(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.expiresAt) {
		c.expiresAt = t
	}
}

// Expired reports whether the session's token has expired at now. A session
// without a known expiry never expires.
func (c *Context) Expired(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.expiresAt.IsZero() && !now.Before(c.expiresAt)
}

// ShouldDerive reports whether the organization derivation has not yet been
// triggered for key, and records key.
func (c *Context) ShouldDerive(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.derivedFor == key {
		return false
	}
	c.derivedFor = key
	return true
}

// Close tears the session down: the user and the organization selection are
// cleared and listeners see a closed snapshot.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.user = nil
	c.loading = false
	c.derivedFor = ""
	c.mu.Unlock()

	err := c.orgs.Clear(ctx)
	c.publish()
	return err
}

func (c *Context) publish() {
	c.changes.Publish(c.Snapshot())
}
