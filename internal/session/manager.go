package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"crm-console/internal/metrics"
	"crm-console/internal/model"
	"crm-console/internal/organization"
)

// ErrUnknownSession is returned for a session id that is not live.
var ErrUnknownSession = errors.New("session not found")

// UserSource loads a user with roles and permissions.
type UserSource interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Manager owns the live session contexts.
type Manager struct {
	users      UserSource
	orgs       organization.Source
	persisters organization.PersisterFactory
	logger     *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	sessions map[string]*Context
}

// NewManager wires the collaborators every session needs.
func NewManager(users UserSource, orgs organization.Source, persisters organization.PersisterFactory, logger *zap.Logger) *Manager {
	if persisters == nil {
		persisters = organization.MemoryFactory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		users:      users,
		orgs:       orgs,
		persisters: persisters,
		logger:     logger,
		sessions:   make(map[string]*Context),
	}
}

// Acquire returns the live context of sessionID, creating it when needed.
func (m *Manager) Acquire(sessionID string, userID uint) *Context {
	m.mu.RLock()
	c, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[sessionID]; ok {
		return c
	}
	store := organization.NewStore(m.orgs, m.persisters(userID), m.logger.With(zap.String("session_id", sessionID)))
	c = NewContext(sessionID, userID, store)
	m.sessions[sessionID] = c
	metrics.LiveSessions.Inc()
	return c
}

// Lookup returns the live context of sessionID.
func (m *Manager) Lookup(sessionID string) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[sessionID]
	return c, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Restore fetches the user of c. Concurrent restores of one session share a
// single fetch.
func (m *Manager) Restore(ctx context.Context, c *Context) error {
	_, err, _ := m.group.Do(c.ID(), func() (interface{}, error) {
		return nil, m.restore(ctx, c)
	})
	return err
}

// AwaitRestore makes sure c has been loaded at least once. It waits at most
// wait for the fetch; when the wait runs out the context is returned still
// loading and the fetch completes in the background.
func (m *Manager) AwaitRestore(ctx context.Context, c *Context, wait time.Duration) Snapshot {
	snap := c.Snapshot()
	if snap.Settled && !snap.Loading {
		return snap
	}

	ch := m.group.DoChan(c.ID(), func() (interface{}, error) {
		return nil, m.restore(context.WithoutCancel(ctx), c)
	})

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		m.logger.Debug("session restore still in flight", zap.String("session_id", c.ID()))
	case <-ctx.Done():
	}
	return c.Snapshot()
}

func (m *Manager) restore(ctx context.Context, c *Context) error {
	c.BeginLoading()
	u, err := m.users.FindByID(ctx, c.UserID())
	if err == nil && u == nil {
		err = fmt.Errorf("user %d: %w", c.UserID(), ErrUnknownSession)
	}
	c.Settle(u, err)
	if err != nil {
		metrics.SessionRestores.WithLabelValues("error").Inc()
		m.logger.Warn("session restore failed",
			zap.String("session_id", c.ID()),
			zap.Uint("user_id", c.UserID()),
			zap.Error(err))
		return err
	}
	metrics.SessionRestores.WithLabelValues("ok").Inc()
	return nil
}

// RefreshUser reloads the user in every live session of userID so listeners
// see new roles and permissions. It returns how many sessions were refreshed.
func (m *Manager) RefreshUser(ctx context.Context, userID uint) int {
	m.mu.RLock()
	targets := make([]*Context, 0)
	for _, c := range m.sessions {
		if c.UserID() == userID {
			targets = append(targets, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range targets {
		if err := m.Restore(ctx, c); err != nil {
			m.logger.Warn("session refresh failed", zap.String("session_id", c.ID()), zap.Error(err))
		}
	}
	return len(targets)
}

// End tears down sessionID (logout).
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	c, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	metrics.LiveSessions.Dec()
	m.group.Forget(sessionID)
	return c.Close(ctx)
}

// EndUser tears down every live session of userID except the one with id
// except. It returns how many were ended.
func (m *Manager) EndUser(ctx context.Context, userID uint, except string) int {
	return m.endWhere(ctx, func(c *Context) bool {
		return c.UserID() == userID && c.ID() != except
	})
}

// Sweep tears down the sessions whose token has expired at now.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	return m.endWhere(ctx, func(c *Context) bool { return c.Expired(now) })
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(ctx, now); n > 0 {
				m.logger.Info("expired sessions swept", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) endWhere(ctx context.Context, match func(*Context) bool) int {
	m.mu.RLock()
	ids := make([]string, 0)
	for id, c := range m.sessions {
		if match(c) {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	ended := 0
	for _, id := range ids {
		err := m.End(ctx, id)
		if errors.Is(err, ErrUnknownSession) {
			continue
		}
		if err != nil {
			m.logger.Warn("session teardown failed", zap.String("session_id", id), zap.Error(err))
		}
		ended++
	}
	return ended
}
