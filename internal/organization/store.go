// Package organization tracks the tenant currently in scope for a session.
package organization

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"crm-console/internal/metrics"
	"crm-console/internal/model"
	"crm-console/internal/notify"
)

var (
	// ErrNotFound is returned by a Source when the organization does not exist.
	ErrNotFound = errors.New("organization not found")
	// ErrBusy is returned when a selection is requested while a fetch is in flight.
	ErrBusy = errors.New("organization fetch already in flight")
)

// Status of the selection state machine.
type Status int

const (
	NoOrganization Status = iota
	Loading
	Selected
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Selected:
		return "selected"
	default:
		return "no_organization"
	}
}

// Source loads organizations from the data collaborator.
type Source interface {
	List(ctx context.Context) ([]model.Organization, error)
	FindByID(ctx context.Context, id uint) (*model.Organization, error)
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Status        Status               `json:"status"`
	Current       *model.Organization  `json:"current,omitempty"`
	Organizations []model.Organization `json:"organizations,omitempty"`
	Loading       bool                 `json:"loading"`
	Err           string               `json:"error,omitempty"`
}

// Store is the organization selection state machine of one session.
type Store struct {
	source  Source
	persist Persister
	logger  *zap.Logger

	mu            sync.Mutex
	current       *model.Organization
	organizations []model.Organization
	loading       bool
	err           string

	changes notify.Registry[Snapshot]
}

// NewStore returns a store in the NoOrganization state.
func NewStore(source Source, persist Persister, logger *zap.Logger) *Store {
	if persist == nil {
		persist = &MemoryPersister{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{source: source, persist: persist, logger: logger}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading, Err: s.err}
	switch {
	case s.loading:
		snap.Status = Loading
	case s.current != nil:
		snap.Status = Selected
	default:
		snap.Status = NoOrganization
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	if s.organizations != nil {
		snap.Organizations = append([]model.Organization(nil), s.organizations...)
	}
	return snap
}

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.changes.Subscribe(fn)
}

func (s *Store) publish() {
	s.changes.Publish(s.Snapshot())
}

// FetchOrganizations loads the tenant list. A call while another fetch is in
// flight returns without fetching. On failure the error is recorded and the
// selection is left as it was.
func (s *Store) FetchOrganizations(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()
	s.publish()

	orgs, err := s.source.List(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
		s.mu.Unlock()
		metrics.OrganizationFetches.WithLabelValues("list", "error").Inc()
		s.logger.Warn("fetch organizations failed", zap.Error(err))
		s.publish()
		return fmt.Errorf("fetch organizations: %w", err)
	}
	s.organizations = orgs
	s.err = ""
	s.mu.Unlock()
	metrics.OrganizationFetches.WithLabelValues("list", "ok").Inc()
	s.publish()
	return nil
}

// SetCurrentOrganization selects org and persists its id. The transition
// happens even when persisting fails.
func (s *Store) SetCurrentOrganization(ctx context.Context, org model.Organization) error {
	s.mu.Lock()
	s.current = &org
	s.err = ""
	s.mu.Unlock()
	s.publish()

	if err := s.persist.Save(ctx, org.ID); err != nil {
		s.logger.Warn("persist organization failed", zap.Uint("organization_id", org.ID), zap.Error(err))
		return err
	}
	return nil
}

// SelectByID fetches the organization and selects it.
func (s *Store) SelectByID(ctx context.Context, id uint) error {
	org, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if org == nil {
		return ErrBusy
	}
	return s.SetCurrentOrganization(ctx, *org)
}

// CurrentFromUser derives the selection: the user's home organization first,
// then the persisted id, else nothing. It does nothing when that id is
// already selected or a fetch is in flight.
func (s *Store) CurrentFromUser(ctx context.Context, u *model.User) error {
	var (
		id uint
		ok bool
	)
	if u != nil && u.OrganizationID != nil {
		id, ok = *u.OrganizationID, true
	} else {
		persisted, found, err := s.persist.Load(ctx)
		if err != nil {
			s.fail(err)
			return err
		}
		id, ok = persisted, found
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	already := s.current != nil && s.current.ID == id
	s.mu.Unlock()
	if already {
		return nil
	}

	org, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if org == nil {
		return nil
	}
	return s.SetCurrentOrganization(ctx, *org)
}

// load fetches one organization under the loading flag. It returns nil, nil
// when another fetch is already in flight.
func (s *Store) load(ctx context.Context, id uint) (*model.Organization, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, nil
	}
	s.loading = true
	s.mu.Unlock()
	s.publish()

	org, err := s.source.FindByID(ctx, id)

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	if err != nil {
		metrics.OrganizationFetches.WithLabelValues("find", "error").Inc()
		s.fail(err)
		return nil, fmt.Errorf("fetch organization %d: %w", id, err)
	}
	metrics.OrganizationFetches.WithLabelValues("find", "ok").Inc()
	return org, nil
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
	s.logger.Warn("organization selection failed", zap.Error(err))
	s.publish()
}

// Clear drops the selection and the persisted id. Used on logout.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.organizations = nil
	s.loading = false
	s.err = ""
	s.mu.Unlock()
	s.publish()

	if err := s.persist.Clear(ctx); err != nil {
		s.logger.Warn("clear persisted organization failed", zap.Error(err))
		return err
	}
	return nil
}
