package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

type brokenRepo struct{ err error }

func (b brokenRepo) Get(context.Context, string) (string, bool, error) { return "", false, b.err }
func (b brokenRepo) Set(context.Context, string, string) error         { return b.err }
func (b brokenRepo) Remove(context.Context, ...string) error           { return b.err }

func TestLoginCurrentLogout(t *testing.T) {
	ctx := context.Background()
	repo := kv.NewMemoryRepository()
	m := New(repo, logging.NopLogger{})

	s, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.False(t, m.IsAuthenticated(ctx))

	u := models.User{Username: "bob", DisplayName: "Bob B", Role: models.RoleEngineer, PasswordHash: "secret"}
	require.NoError(t, m.Login(ctx, u))

	s, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Session{Username: "bob", DisplayName: "Bob B", Role: models.RoleEngineer}, s)
	assert.True(t, m.IsAuthenticated(ctx))

	raw, _, _ := repo.Get(ctx, Key)
	assert.NotContains(t, raw, "secret", "credential never lands in the session slot")

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated(ctx))
}

func TestSessionSurvivesAcrossManagers(t *testing.T) {
	ctx := context.Background()
	repo := kv.NewMemoryRepository()

	require.NoError(t, New(repo, logging.NopLogger{}).Login(ctx, models.User{Username: "bob", Role: models.RoleAdmin}))

	assert.True(t, New(repo, logging.NopLogger{}).IsAuthenticated(ctx))
}

func TestSeparateReposDoNotCollide(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemoryRepository(), logging.NopLogger{})
	b := New(kv.NewMemoryRepository(), logging.NopLogger{})

	require.NoError(t, a.Login(ctx, models.User{Username: "alice"}))

	assert.True(t, a.IsAuthenticated(ctx))
	assert.False(t, b.IsAuthenticated(ctx))
}

func TestMalformedSessionIsAbsent(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"{oops", `{"displayName":"nobody"}`, `"bob"`} {
		repo := kv.NewMemoryRepository()
		require.NoError(t, repo.Set(ctx, Key, raw))
		m := New(repo, logging.NopLogger{})

		s, err := m.Current(ctx)
		require.NoError(t, err, raw)
		assert.Nil(t, s, raw)
		assert.False(t, m.IsAuthenticated(ctx), raw)
	}
}

func TestLogoutClearsLegacyKeys(t *testing.T) {
	ctx := context.Background()
	repo := kv.NewMemoryRepository()
	for _, k := range LegacyKeys {
		require.NoError(t, repo.Set(ctx, k, `{"username":"ghost"}`))
	}
	require.NoError(t, repo.Set(ctx, "users", "[]"))

	require.NoError(t, New(repo, logging.NopLogger{}).Logout(ctx))

	for _, k := range LegacyKeys {
		_, ok, err := repo.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	_, ok, _ := repo.Get(ctx, "users")
	assert.True(t, ok, "logout leaves the directory alone")
}

func TestStoreErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	m := New(brokenRepo{err: errors.New("io")}, logging.NopLogger{})

	assert.Error(t, m.Login(ctx, models.User{Username: "bob"}))
	_, err := m.Current(ctx)
	assert.Error(t, err)
	assert.Error(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated(ctx))
}
