// Package directory keeps the team's user records: a small collection keyed by
// case-insensitive username, persisted as a whole to the local kv store on
// every change and handed to a Syncer for remote replication.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
	"github.com/dmitrijs2005/teamdesk/internal/common"
	"github.com/dmitrijs2005/teamdesk/internal/cryptox"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

const (
	// UsersKey holds the JSON array of users in the kv store.
	UsersKey = "users"
	// LegacyPasswordHashKey is where single-password installs kept their hash.
	LegacyPasswordHashKey = "legacy_password_hash"

	DefaultUsername    = "admin"
	DefaultDisplayName = "Administrator"
	DefaultPassword    = "admin"
)

// Syncer replicates directory changes. Both calls must return without
// waiting for the remote side.
type Syncer interface {
	Push(users []models.User)
	DeleteRemote(username string)
}

type nopSyncer struct{}

func (nopSyncer) Push([]models.User)  {}
func (nopSyncer) DeleteRemote(string) {}

var hashPassword = cryptox.HashPassword

type Store struct {
	mu     sync.RWMutex
	users  []models.User
	repo   kv.Repository
	syncer Syncer
	logger logging.Logger
}

// New loads the directory from repo. A stored value that does not decode is
// logged and treated as an empty directory.
func New(ctx context.Context, repo kv.Repository, logger logging.Logger) (*Store, error) {
	s := &Store{
		repo:   repo,
		syncer: nopSyncer{},
		logger: logger.With("module", "directory"),
	}

	raw, ok, err := repo.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	if ok {
		var users []models.User
		if err := json.Unmarshal([]byte(raw), &users); err != nil {
			s.logger.Warn(ctx, "stored directory is corrupt, starting empty", "error", err)
		} else {
			s.users = users
		}
	}

	return s, nil
}

// SetSyncer installs the replication target. Pass nil to disable replication.
func (s *Store) SetSyncer(sy Syncer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sy == nil {
		sy = nopSyncer{}
	}
	s.syncer = sy
}

// List returns a copy of all users.
func (s *Store) List() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...)
}

// Find looks username up case-insensitively and returns a copy of the record.
func (s *Store) Find(username string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(username)
	if i < 0 {
		return nil, false
	}
	u := s.users[i]
	return &u, true
}

// LegacyCredentials returns the usernames whose stored credential is still in
// the legacy format.
func (s *Store) LegacyCredentials() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, u := range s.users {
		if cryptox.IsLegacyHash(u.PasswordHash) {
			names = append(names, u.Username)
		}
	}
	return names
}

func (s *Store) Add(ctx context.Context, username, displayName string, role models.Role, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return common.ErrInvalidUsername
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidRole, role)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	if s.indexOf(username) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("add %q: %w", username, common.ErrDuplicateUsername)
	}

	next := append(append([]models.User(nil), s.users...), models.User{
		Username:     username,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: hash,
	})
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot, syncer := s.snapshot()
	s.mu.Unlock()

	s.logger.Info(ctx, "user added", "username", username, "role", role)
	syncer.Push(snapshot)
	return nil
}

// Update applies the non-nil fields of patch. A new password is always stored
// in the current credential format.
func (s *Store) Update(ctx context.Context, username string, patch models.UserPatch) error {
	if patch.Role != nil && !patch.Role.Valid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidRole, *patch.Role)
	}

	var hash string
	if patch.Password != nil {
		h, err := hashPassword(*patch.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	i := s.indexOf(username)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update %q: %w", username, common.ErrUserNotFound)
	}

	next := append([]models.User(nil), s.users...)
	u := &next[i]
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Password != nil {
		u.PasswordHash = hash
	}
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot, syncer := s.snapshot()
	s.mu.Unlock()

	s.logger.Info(ctx, "user updated", "username", username)
	syncer.Push(snapshot)
	return nil
}

// Remove deletes username. Removing an unknown user is a no-op.
func (s *Store) Remove(ctx context.Context, username string) error {
	s.mu.Lock()
	i := s.indexOf(username)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	removed := s.users[i].Username
	next := make([]models.User, 0, len(s.users)-1)
	next = append(next, s.users[:i]...)
	next = append(next, s.users[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	syncer := s.syncer
	s.mu.Unlock()

	s.logger.Info(ctx, "user removed", "username", removed)
	syncer.DeleteRemote(removed)
	return nil
}

// EnsureDefaultUser seeds the admin account when the directory is empty. Its
// credential comes from the legacy single-password key if one exists.
// Callers must pull from the remote mirror first.
func (s *Store) EnsureDefaultUser(ctx context.Context) error {
	s.mu.Lock()
	if len(s.users) > 0 {
		s.mu.Unlock()
		return nil
	}

	hash, ok, err := s.repo.Get(ctx, LegacyPasswordHashKey)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("read legacy hash: %w", err)
	}
	hash = strings.TrimSpace(hash)
	legacy := ok && hash != ""
	if legacy && !cryptox.IsLegacyHash(hash) {
		s.logger.Warn(ctx, "ignoring malformed legacy password hash", "key", LegacyPasswordHashKey)
		legacy = false
	}
	if !legacy {
		hash, err = hashPassword(DefaultPassword)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("hash password: %w", err)
		}
	}

	next := []models.User{{
		Username:     DefaultUsername,
		DisplayName:  DefaultDisplayName,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}}
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot, syncer := s.snapshot()
	s.mu.Unlock()

	s.logger.Info(ctx, "default user seeded", "username", DefaultUsername, "legacy", legacy)
	syncer.Push(snapshot)
	return nil
}

// Replace swaps the whole directory for users without scheduling replication.
func (s *Store) Replace(ctx context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, append([]models.User(nil), users...))
}

// commit persists next and, on success, makes it current. Callers hold mu.
func (s *Store) commit(ctx context.Context, next []models.User) error {
	if next == nil {
		next = []models.User{}
	}
	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}
	if err := s.repo.Set(ctx, UsersKey, string(b)); err != nil {
		return fmt.Errorf("save directory: %w", err)
	}
	s.users = next
	return nil
}

func (s *Store) snapshot() ([]models.User, Syncer) {
	return append([]models.User(nil), s.users...), s.syncer
}

// indexOf matches the trimmed username, the form Add stores.
func (s *Store) indexOf(username string) int {
	username = strings.TrimSpace(username)
	for i, u := range s.users {
		if u.Matches(username) {
			return i
		}
	}
	return -1
}
