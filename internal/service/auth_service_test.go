package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crm-console/internal/model"
	"crm-console/internal/organization"
	"crm-console/internal/session"
	"crm-console/pkg/jwt"
)

func seededUser(t *testing.T, id uint, email, password string, roles ...model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: email, FullName: "Test User", IsActive: true, Roles: roles}
	u.ID = id
	require.NoError(t, u.SetPassword(password))
	return u
}

func newAuth(t *testing.T, users *memUsers) (AuthService, *session.Manager, *jwt.Issuer) {
	t.Helper()
	issuer := jwt.NewIssuer("test-secret", time.Hour)
	sessions := session.NewManager(users, noOrgs{}, organization.MemoryFactory(), nil)
	return NewAuthService(users, issuer, sessions, zap.NewNop()), sessions, issuer
}

func TestLoginStartsSettledSession(t *testing.T) {
	role := model.Role{ID: 5, Permissions: []model.Permission{{ID: 1, Slug: "hotel_Access"}}}
	users := newMemUsers(seededUser(t, 7, "agent@example.com", "secret1", role))
	auth, sessions, issuer := newAuth(t, users)

	resp, err := auth.Login(context.Background(), "agent@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hotel_Access"}, resp.Permissions)
	assert.False(t, resp.IsSuperUser)

	claims, err := issuer.ValidateToken(resp.Token)
	require.NoError(t, err)
	sess, ok := sessions.Lookup(claims.SessionID)
	require.True(t, ok)
	snap := sess.Snapshot()
	assert.True(t, snap.Settled)
	require.NotNil(t, snap.User)
	assert.Equal(t, claims.TokenVersion, snap.User.TokenVersion)
}

func TestLoginFailures(t *testing.T) {
	inactive := seededUser(t, 8, "off@example.com", "secret1")
	inactive.IsActive = false
	users := newMemUsers(seededUser(t, 7, "agent@example.com", "secret1"), inactive)
	auth, _, _ := newAuth(t, users)

	_, err := auth.Login(context.Background(), "agent@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(context.Background(), "off@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestSecondLoginReplacesFirst(t *testing.T) {
	users := newMemUsers(seededUser(t, 7, "agent@example.com", "secret1"))
	auth, _, _ := newAuth(t, users)

	first, err := auth.Login(context.Background(), "agent@example.com", "secret1")
	require.NoError(t, err)
	_, err = auth.Login(context.Background(), "agent@example.com", "secret1")
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), first.Token)
	assert.ErrorIs(t, err, ErrSessionReplaced)
}

func TestLogoutEndsSession(t *testing.T) {
	users := newMemUsers(seededUser(t, 7, "agent@example.com", "secret1"))
	auth, sessions, issuer := newAuth(t, users)

	resp, err := auth.Login(context.Background(), "agent@example.com", "secret1")
	require.NoError(t, err)
	claims, err := issuer.ValidateToken(resp.Token)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(context.Background(), claims))
	_, live := sessions.Lookup(claims.SessionID)
	assert.False(t, live)

	_, err = auth.ValidateToken(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrSessionReplaced)
}

func TestResetPassword(t *testing.T) {
	users := newMemUsers(seededUser(t, 7, "agent@example.com", "secret1"))
	auth, _, _ := newAuth(t, users)

	assert.ErrorIs(t, auth.ResetPassword(context.Background(), "agent@example.com", "nope", "secret2"), ErrWrongPassword)
	require.NoError(t, auth.ResetPassword(context.Background(), "agent@example.com", "secret1", "secret2"))

	_, err := auth.Login(context.Background(), "agent@example.com", "secret2")
	assert.NoError(t, err)
}

func TestRepeatedLoginsKeepOneSession(t *testing.T) {
	users := newMemUsers(seededUser(t, 7, "agent@example.com", "secret1"))
	auth, sessions, issuer := newAuth(t, users)

	var last *LoginResponse
	for i := 0; i < 5; i++ {
		resp, err := auth.Login(context.Background(), "agent@example.com", "secret1")
		require.NoError(t, err)
		last = resp
	}
	assert.Equal(t, 1, sessions.Len())

	claims, err := issuer.ValidateToken(last.Token)
	require.NoError(t, err)
	sess, ok := sessions.Lookup(claims.SessionID)
	require.True(t, ok)
	assert.False(t, sess.Expired(time.Now()))
	assert.True(t, sess.Expired(time.Now().Add(2*time.Hour)))
}
