// Package session holds the single local "who is logged in" slot. The slot
// is a value copy taken at login and is never shared with the remote mirror.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

// Key is the kv slot of the current session.
const Key = "session"

// LegacyKeys are slots earlier releases kept sessions in. Logout clears them
// so an old value cannot bring a session back.
var LegacyKeys = []string{"currentUser", "auth_user", "legacy_session"}

type Manager struct {
	repo   kv.Repository
	logger logging.Logger
}

func New(repo kv.Repository, logger logging.Logger) *Manager {
	return &Manager{repo: repo, logger: logger.With("module", "session")}
}

// Login stores the session projection of user.
func (m *Manager) Login(ctx context.Context, user models.User) error {
	b, err := json.Marshal(user.Session())
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.repo.Set(ctx, Key, string(b)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Current returns the stored session, or nil when there is none. A stored
// value that does not decode counts as no session.
func (m *Manager) Current(ctx context.Context) (*models.Session, error) {
	raw, ok, err := m.repo.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var s models.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.Username == "" {
		m.logger.Warn(ctx, "ignoring malformed session")
		return nil, nil
	}
	return &s, nil
}

// IsAuthenticated reports whether a session is present. Read errors are
// logged and count as not authenticated.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	s, err := m.Current(ctx)
	if err != nil {
		m.logger.Error(ctx, "session check failed", "error", err)
		return false
	}
	return s != nil
}

// Logout clears the session slot and every legacy slot.
func (m *Manager) Logout(ctx context.Context) error {
	keys := append([]string{Key}, LegacyKeys...)
	if err := m.repo.Remove(ctx, keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
