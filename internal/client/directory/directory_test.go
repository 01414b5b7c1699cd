package directory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
	"github.com/dmitrijs2005/teamdesk/internal/common"
	"github.com/dmitrijs2005/teamdesk/internal/cryptox"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

type recordingSyncer struct {
	mu      sync.Mutex
	pushes  [][]models.User
	deletes []string
}

func (r *recordingSyncer) Push(users []models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, users)
}

func (r *recordingSyncer) DeleteRemote(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, username)
}

// failingRepo wraps a memory repository and fails writes on demand.
type failingRepo struct {
	*kv.MemoryRepository
	setErr error
	getErr error
}

func (f *failingRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.MemoryRepository.Get(ctx, key)
}

func (f *failingRepo) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryRepository.Set(ctx, key, value)
}

func newStore(t *testing.T) (*Store, *kv.MemoryRepository, *recordingSyncer) {
	t.Helper()
	repo := kv.NewMemoryRepository()
	s, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)
	sy := &recordingSyncer{}
	s.SetSyncer(sy)
	return s, repo, sy
}

func storedUsers(t *testing.T, repo kv.Repository) []models.User {
	t.Helper()
	raw, ok, err := repo.Get(context.Background(), UsersKey)
	require.NoError(t, err)
	require.True(t, ok, "directory must be persisted")
	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(raw), &users))
	return users
}

func TestAdd_PersistsAndPushes(t *testing.T) {
	s, repo, sy := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "Alice", "Alice A", models.RoleManager, "pw1"))

	u, ok := s.Find("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Username, "original casing is preserved")
	assert.True(t, cryptox.VerifyPassword("pw1", u.PasswordHash))
	assert.False(t, cryptox.IsLegacyHash(u.PasswordHash))

	if diff := cmp.Diff(s.List(), storedUsers(t, repo)); diff != "" {
		t.Fatalf("persisted directory mismatch (-mem +stored):\n%s", diff)
	}
	require.Len(t, sy.pushes, 1)
	assert.Equal(t, s.List(), sy.pushes[0])
}

func TestAdd_DuplicateIsCaseInsensitive(t *testing.T) {
	s, _, sy := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "Alice", "A", models.RoleEngineer, "x"))
	err := s.Add(ctx, "alice", "B", models.RoleEngineer, "y")

	assert.ErrorIs(t, err, common.ErrDuplicateUsername)
	assert.Len(t, s.List(), 1)
	assert.Len(t, sy.pushes, 1, "failed add does not push")
}

func TestAdd_Validation(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Add(ctx, "  ", "x", models.RoleAdmin, "p"), common.ErrInvalidUsername)
	assert.ErrorIs(t, s.Add(ctx, "bob", "x", models.Role("intern"), "p"), common.ErrInvalidRole)
	assert.Empty(t, s.List())
}

func TestAdd_LocalWriteFailureIsReturned(t *testing.T) {
	repo := &failingRepo{MemoryRepository: kv.NewMemoryRepository()}
	s, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)
	sy := &recordingSyncer{}
	s.SetSyncer(sy)

	repo.setErr = errors.New("disk full")
	err = s.Add(context.Background(), "bob", "Bob", models.RoleEngineer, "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, s.List(), "memory state is untouched when the write fails")
	assert.Empty(t, sy.pushes)
}

func TestUpdate_PartialPatch(t *testing.T) {
	s, repo, sy := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "bob", "Bob B", models.RoleEngineer, "old"))
	before, _ := s.Find("bob")

	name := "Robert"
	require.NoError(t, s.Update(ctx, "BOB", models.UserPatch{DisplayName: &name}))

	after, _ := s.Find("bob")
	assert.Equal(t, "Robert", after.DisplayName)
	assert.Equal(t, models.RoleEngineer, after.Role)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	role := models.RoleManager
	pw := "new"
	require.NoError(t, s.Update(ctx, "bob", models.UserPatch{Role: &role, Password: &pw}))

	after, _ = s.Find("bob")
	assert.Equal(t, models.RoleManager, after.Role)
	assert.Equal(t, "Robert", after.DisplayName)
	assert.True(t, cryptox.VerifyPassword("new", after.PasswordHash))
	assert.False(t, cryptox.VerifyPassword("old", after.PasswordHash))

	assert.Equal(t, s.List(), storedUsers(t, repo))
	assert.Len(t, sy.pushes, 3)
}

func TestUpdate_RehashesLegacyIntoCurrentFormat(t *testing.T) {
	repo := kv.NewMemoryRepository()
	legacy := []models.User{{Username: "eve", DisplayName: "Eve", Role: models.RoleEngineer, PasswordHash: cryptox.LegacyHash("pw")}}
	b, _ := json.Marshal(legacy)
	require.NoError(t, repo.Set(context.Background(), UsersKey, string(b)))

	s, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, []string{"eve"}, s.LegacyCredentials())

	pw := "pw"
	require.NoError(t, s.Update(context.Background(), "eve", models.UserPatch{Password: &pw}))

	u, _ := s.Find("eve")
	assert.True(t, cryptox.VerifyPassword("pw", u.PasswordHash))
	assert.False(t, cryptox.IsLegacyHash(u.PasswordHash))
	assert.Empty(t, s.LegacyCredentials())
}

func TestUpdate_Errors(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	name := "x"
	assert.ErrorIs(t, s.Update(ctx, "ghost", models.UserPatch{DisplayName: &name}), common.ErrUserNotFound)

	require.NoError(t, s.Add(ctx, "bob", "Bob", models.RoleEngineer, "p"))
	bad := models.Role("boss")
	assert.ErrorIs(t, s.Update(ctx, "bob", models.UserPatch{Role: &bad}), common.ErrInvalidRole)
}

func TestRemove_IsIdempotent(t *testing.T) {
	s, repo, sy := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Remove(ctx, "nobody"))
	assert.Empty(t, sy.deletes)

	require.NoError(t, s.Add(ctx, "Bob", "Bob", models.RoleEngineer, "p"))
	require.NoError(t, s.Remove(ctx, "bob"))
	require.NoError(t, s.Remove(ctx, "bob"))

	assert.Empty(t, s.List())
	assert.Empty(t, storedUsers(t, repo))
	assert.Equal(t, []string{"Bob"}, sy.deletes)
}

func TestEnsureDefaultUser_SeedsOnceWithDefaultPassword(t *testing.T) {
	s, _, sy := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDefaultUser(ctx))
	require.NoError(t, s.EnsureDefaultUser(ctx))

	users := s.List()
	require.Len(t, users, 1)
	assert.Equal(t, DefaultUsername, users[0].Username)
	assert.Equal(t, DefaultDisplayName, users[0].DisplayName)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, cryptox.VerifyPassword(DefaultPassword, users[0].PasswordHash))
	assert.Len(t, sy.pushes, 1)
}

func TestEnsureDefaultUser_UsesLegacyHash(t *testing.T) {
	repo := kv.NewMemoryRepository()
	require.NoError(t, repo.Set(context.Background(), LegacyPasswordHashKey, cryptox.LegacyHash("hunter2")))

	s, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, s.EnsureDefaultUser(context.Background()))

	u, ok := s.Find("admin")
	require.True(t, ok)
	assert.Equal(t, cryptox.LegacyHash("hunter2"), u.PasswordHash)
	assert.True(t, cryptox.VerifyPassword("hunter2", u.PasswordHash))
	assert.False(t, cryptox.VerifyPassword(DefaultPassword, u.PasswordHash))
}

func TestEnsureDefaultUser_NoopWhenUsersExist(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, []models.User{{Username: "bob", Role: models.RoleEngineer}}))
	require.NoError(t, s.EnsureDefaultUser(ctx))

	_, hasAdmin := s.Find("admin")
	assert.False(t, hasAdmin)
	assert.Len(t, s.List(), 1)
}

func TestEnsureDefaultUser_LegacyReadError(t *testing.T) {
	repo := &failingRepo{MemoryRepository: kv.NewMemoryRepository()}
	s, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)

	repo.getErr = errors.New("locked")
	assert.Error(t, s.EnsureDefaultUser(context.Background()))
	assert.Empty(t, s.List())
}

func TestReplace_DoesNotSync(t *testing.T) {
	s, repo, sy := newStore(t)

	users := []models.User{{Username: "bob", DisplayName: "Bob", Role: models.RoleEngineer, PasswordHash: "h"}}
	require.NoError(t, s.Replace(context.Background(), users))

	assert.Equal(t, users, s.List())
	assert.Equal(t, users, storedUsers(t, repo))
	assert.Empty(t, sy.pushes)
}

func TestNew_CorruptDirectoryIsEmpty(t *testing.T) {
	repo := kv.NewMemoryRepository()
	require.NoError(t, repo.Set(context.Background(), UsersKey, "{not json"))

	s, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)
	assert.Empty(t, s.List())
}

func TestNew_ReadErrorIsReturned(t *testing.T) {
	repo := &failingRepo{MemoryRepository: kv.NewMemoryRepository(), getErr: errors.New("io")}
	_, err := New(context.Background(), repo, logging.NopLogger{})
	assert.Error(t, err)
}

func TestNew_ReloadsPersistedDirectory(t *testing.T) {
	s, repo, _ := newStore(t)
	require.NoError(t, s.Add(context.Background(), "bob", "Bob", models.RoleEngineer, "p"))

	again, err := New(context.Background(), repo, logging.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, s.List(), again.List())
}

func TestList_ReturnsCopy(t *testing.T) {
	s, _, _ := newStore(t)
	require.NoError(t, s.Replace(context.Background(), []models.User{{Username: "bob"}}))

	users := s.List()
	users[0].Username = "mallory"

	_, ok := s.Find("bob")
	assert.True(t, ok)
}

func TestLookups_TrimUsernameLikeAdd(t *testing.T) {
	s, _, sy := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, " bob ", "Bob", models.RoleEngineer, "p"))

	u, ok := s.Find(" bob ")
	require.True(t, ok)
	assert.Equal(t, "bob", u.Username)

	assert.ErrorIs(t, s.Add(ctx, "BOB\t", "Dup", models.RoleEngineer, "p"), common.ErrDuplicateUsername)

	name := "Robert"
	require.NoError(t, s.Update(ctx, "  Bob", models.UserPatch{DisplayName: &name}))
	u, _ = s.Find("bob")
	assert.Equal(t, "Robert", u.DisplayName)

	require.NoError(t, s.Remove(ctx, "bob  "))
	assert.Empty(t, s.List())
	assert.Equal(t, []string{"bob"}, sy.deletes)
}

func TestEnsureDefaultUser_MalformedLegacyHashFallsBackToDefault(t *testing.T) {
	for _, stored := range []string{"not-a-digest", "pbkdf2:zz", cryptox.LegacyHash("x")[:63] + "g"} {
		t.Run(stored, func(t *testing.T) {
			repo := kv.NewMemoryRepository()
			require.NoError(t, repo.Set(context.Background(), LegacyPasswordHashKey, stored))

			s, err := New(context.Background(), repo, logging.NopLogger{})
			require.NoError(t, err)
			require.NoError(t, s.EnsureDefaultUser(context.Background()))

			u, ok := s.Find(DefaultUsername)
			require.True(t, ok)
			assert.NotEqual(t, stored, u.PasswordHash)
			assert.True(t, cryptox.VerifyPassword(DefaultPassword, u.PasswordHash), "admin must stay reachable")
		})
	}
}
