package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-console/internal/authz"
	"crm-console/internal/model"
	"crm-console/internal/organization"
)

type stubUsers struct {
	mu    sync.Mutex
	users map[uint]*model.User
	err   error
	calls int
	gate  chan struct{}
}

func (s *stubUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *stubUsers) set(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

type stubOrgs struct{}

func (stubOrgs) List(ctx context.Context) ([]model.Organization, error) {
	return []model.Organization{}, nil
}

func (stubOrgs) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	o := model.Organization{Code: "ACME"}
	o.ID = id
	return &o, nil
}

func agent(id uint, slugs ...string) *model.User {
	perms := make([]model.Permission, len(slugs))
	for i, s := range slugs {
		perms[i] = model.Permission{ID: uint(i + 1), Slug: s}
	}
	u := &model.User{Roles: []model.Role{{ID: 3, Permissions: perms}}}
	u.ID = id
	return u
}

func newManager(users *stubUsers) *Manager {
	return NewManager(users, stubOrgs{}, organization.MemoryFactory(), nil)
}

func TestAcquireReturnsSameContext(t *testing.T) {
	m := newManager(&stubUsers{users: map[uint]*model.User{}})
	a := m.Acquire("s1", 7)
	b := m.Acquire("s1", 7)
	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Len())

	snap := a.Snapshot()
	assert.Nil(t, snap.User)
	assert.False(t, snap.Settled)
}

func TestAwaitRestoreLoadsUser(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7, "hotel_Access")}}
	m := newManager(users)
	c := m.Acquire("s1", 7)

	snap := m.AwaitRestore(context.Background(), c, time.Second)
	require.NotNil(t, snap.User)
	assert.True(t, snap.Settled)
	assert.False(t, snap.Loading)

	m.AwaitRestore(context.Background(), c, time.Second)
	assert.Equal(t, 1, users.calls)
}

func TestAwaitRestoreTimesOutWhileLoading(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7)}, gate: make(chan struct{})}
	m := newManager(users)
	c := m.Acquire("s1", 7)

	snap := m.AwaitRestore(context.Background(), c, 10*time.Millisecond)
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.User)
	assert.False(t, snap.Settled)

	settled := make(chan struct{})
	c.Subscribe(func(s Snapshot) {
		if s.Settled {
			close(settled)
		}
	})
	close(users.gate)
	<-settled
	assert.NotNil(t, c.Snapshot().User)
}

func TestConcurrentRestoresShareOneFetch(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7)}, gate: make(chan struct{})}
	m := newManager(users)
	c := m.Acquire("s1", 7)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AwaitRestore(context.Background(), c, time.Second)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(users.gate)
	wg.Wait()

	assert.Equal(t, 1, users.calls)
}

func TestRestoreFailureIsRecorded(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{}, err: errors.New("db down")}
	m := newManager(users)
	c := m.Acquire("s1", 7)

	snap := m.AwaitRestore(context.Background(), c, time.Second)
	assert.True(t, snap.Settled)
	assert.Nil(t, snap.User)
	assert.Equal(t, "db down", snap.Err)
}

func TestRefreshUserReevaluatesWatchers(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7, "hotel_Access")}}
	m := newManager(users)
	c := m.Acquire("s1", 7)
	m.AwaitRestore(context.Background(), c, time.Second)

	var decisions []bool
	stop := c.WatchDecision(authz.Perm("hotel_Edit"), func(allowed bool) {
		decisions = append(decisions, allowed)
	})
	defer stop()

	users.set(agent(7, "hotel_Access", "hotel_Edit"))
	assert.Equal(t, 1, m.RefreshUser(context.Background(), 7))
	assert.Equal(t, 0, m.RefreshUser(context.Background(), 8))

	require.NotEmpty(t, decisions)
	assert.False(t, decisions[0])
	assert.True(t, decisions[len(decisions)-1])
}

func TestEndClearsSessionAndOrganization(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7)}}
	persisters := organization.MemoryFactory()
	m := NewManager(users, stubOrgs{}, persisters, nil)
	c := m.Acquire("s1", 7)
	m.AwaitRestore(context.Background(), c, time.Second)
	require.NoError(t, c.Organizations().SelectByID(context.Background(), 2))

	var last Snapshot
	c.Subscribe(func(s Snapshot) { last = s })

	require.NoError(t, m.End(context.Background(), "s1"))
	assert.True(t, last.Closed)
	assert.Nil(t, last.User)
	assert.Equal(t, organization.NoOrganization, c.Organizations().Snapshot().Status)
	_, ok, _ := persisters(7).Load(context.Background())
	assert.False(t, ok)

	_, live := m.Lookup("s1")
	assert.False(t, live)
	assert.ErrorIs(t, m.End(context.Background(), "s1"), ErrUnknownSession)
}

func TestShouldDeriveOncePerKey(t *testing.T) {
	c := NewContext("s1", 7, organization.NewStore(stubOrgs{}, nil, nil))
	assert.True(t, c.ShouldDerive("7:settled"))
	assert.False(t, c.ShouldDerive("7:settled"))
	assert.True(t, c.ShouldDerive("8:settled"))
}

func TestSettleAfterEndIsIgnored(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7)}, gate: make(chan struct{})}
	m := newManager(users)
	c := m.Acquire("s1", 7)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Restore(context.Background(), c)
	}()
	require.Eventually(t, func() bool { return c.Snapshot().Loading }, time.Second, time.Millisecond)

	require.NoError(t, m.End(context.Background(), "s1"))
	var published []Snapshot
	c.Subscribe(func(s Snapshot) { published = append(published, s) })
	close(users.gate)
	<-done

	snap := c.Snapshot()
	assert.True(t, snap.Closed)
	assert.Nil(t, snap.User)
	assert.Empty(t, published)
}

func TestSettleCountsLoads(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: agent(7)}}
	m := newManager(users)
	c := m.Acquire("s1", 7)
	assert.Zero(t, c.Snapshot().Loads)

	m.AwaitRestore(context.Background(), c, time.Second)
	assert.Equal(t, uint64(1), c.Snapshot().Loads)

	m.RefreshUser(context.Background(), 7)
	assert.Equal(t, uint64(2), c.Snapshot().Loads)
}

func TestEndUserKeepsOnlyTheGivenSession(t *testing.T) {
	m := newManager(&stubUsers{users: map[uint]*model.User{}})
	m.Acquire("old-1", 7)
	m.Acquire("old-2", 7)
	m.Acquire("other", 8)
	current := m.Acquire("new", 7)

	assert.Equal(t, 2, m.EndUser(context.Background(), 7, "new"))
	assert.Equal(t, 2, m.Len())
	_, live := m.Lookup("new")
	assert.True(t, live)
	_, live = m.Lookup("other")
	assert.True(t, live)
	assert.False(t, current.Snapshot().Closed)
}

func TestSweepEndsExpiredSessions(t *testing.T) {
	m := newManager(&stubUsers{users: map[uint]*model.User{}})
	now := time.Now()
	m.Acquire("expired", 7).ExpireAt(now.Add(-time.Minute))
	m.Acquire("valid", 8).ExpireAt(now.Add(time.Hour))
	m.Acquire("unknown", 9)

	assert.Equal(t, 1, m.Sweep(context.Background(), now))
	_, live := m.Lookup("expired")
	assert.False(t, live)
	assert.Equal(t, 2, m.Len())
}

func TestExpireAtOnlyExtends(t *testing.T) {
	c := NewContext("s1", 7, organization.NewStore(stubOrgs{}, nil, nil))
	now := time.Now()
	assert.False(t, c.Expired(now))

	c.ExpireAt(now.Add(time.Hour))
	c.ExpireAt(now.Add(-time.Hour))
	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(now.Add(2*time.Hour)))
}
