// Package mirror replicates the user directory to a shared remote document
// collection. Pushes and deletes run as detached tasks; Pull is the only
// call a caller waits on.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/common"
	"github.com/dmitrijs2005/teamdesk/internal/docstore"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

const DefaultSyncTimeout = 10 * time.Second

// Target receives the remote snapshot on Pull.
type Target interface {
	Replace(ctx context.Context, users []models.User) error
}

// document is the remote shape of a user. UpdatedBy is informational.
type document struct {
	models.User
	UpdatedBy string `json:"updatedBy,omitempty"`
}

// DocumentID is the remote key for username. Keys are lowercased so that the
// remote collection shares the directory's case-insensitive identity.
func DocumentID(username string) string {
	return strings.ToLower(username)
}

type Mirror struct {
	store    docstore.Store
	target   Target
	deviceID string
	timeout  time.Duration
	logger   logging.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	last    chan struct{}
	offline sync.Once
}

// New builds a Mirror. A nil store makes every operation a logged no-op.
func New(store docstore.Store, target Target, deviceID string, timeout time.Duration, logger logging.Logger) *Mirror {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	return &Mirror{
		store:    store,
		target:   target,
		deviceID: deviceID,
		timeout:  timeout,
		logger:   logger.With("module", "mirror"),
	}
}

func (m *Mirror) enabled(ctx context.Context) bool {
	if m.store != nil {
		return true
	}
	m.offline.Do(func() {
		m.logger.Info(ctx, "no remote store configured, running offline")
	})
	return false
}

// Pull replaces the local directory with the remote collection when the
// remote side has users. Any failure leaves the local directory as it was.
// Pending pushes and deletes from this device land first; if they do not
// finish within the timeout the pull is skipped.
func (m *Mirror) Pull(ctx context.Context) {
	if !m.enabled(ctx) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.drain(ctx); err != nil {
		m.logger.Warn(ctx, "pull skipped, local changes not yet mirrored", "error", err)
		return
	}

	docs, err := m.store.List(ctx, common.UsersCollection)
	if err != nil {
		m.logger.Warn(ctx, "pull failed", "error", err)
		return
	}
	if len(docs) == 0 {
		m.logger.Debug(ctx, "remote directory is empty")
		return
	}

	users, err := decode(docs)
	if err != nil {
		m.logger.Warn(ctx, "remote directory rejected", "error", err)
		return
	}

	if err := m.target.Replace(ctx, users); err != nil {
		m.logger.Error(ctx, "applying remote directory failed", "error", err)
		return
	}
	m.logger.Info(ctx, "directory pulled", "users", len(users))
}

func decode(docs []docstore.Document) ([]models.User, error) {
	users := make([]models.User, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		var doc document
		if err := json.Unmarshal(d.Data, &doc); err != nil {
			return nil, fmt.Errorf("document %q: %w", d.ID, err)
		}
		u := doc.User
		if strings.TrimSpace(u.Username) == "" {
			return nil, fmt.Errorf("document %q: %w", d.ID, common.ErrInvalidUsername)
		}
		if !u.Role.Valid() {
			return nil, fmt.Errorf("document %q: %w", d.ID, common.ErrInvalidRole)
		}
		key := DocumentID(u.Username)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("document %q: %w", d.ID, common.ErrDuplicateUsername)
		}
		seen[key] = struct{}{}
		users = append(users, u)
	}
	return users, nil
}

// Push upserts every user in the background.
func (m *Mirror) Push(users []models.User) {
	if !m.enabled(context.Background()) {
		return
	}
	users = append([]models.User(nil), users...)

	m.schedule("push", func(ctx context.Context) error {
		var errs []error
		for _, u := range users {
			body, err := json.Marshal(document{User: u, UpdatedBy: m.deviceID})
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := m.store.Upsert(ctx, common.UsersCollection, DocumentID(u.Username), body); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", u.Username, err))
			}
		}
		return errors.Join(errs...)
	})
}

// DeleteRemote removes username's document in the background.
func (m *Mirror) DeleteRemote(username string) {
	if !m.enabled(context.Background()) {
		return
	}

	m.schedule("delete", func(ctx context.Context) error {
		return m.store.Delete(ctx, common.UsersCollection, DocumentID(username))
	})
}

// drain waits for the most recently scheduled task. Tasks are chained, so
// that covers every task scheduled before the call.
func (m *Mirror) drain(ctx context.Context) error {
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()

	if last == nil {
		return nil
	}
	select {
	case <-last:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every scheduled task has finished.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// schedule runs fn detached. Tasks run one after another in scheduling order,
// so the newest snapshot is the last one written.
func (m *Mirror) schedule(op string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	prev := m.last
	done := make(chan struct{})
	m.last = done
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			m.logger.Warn(ctx, "remote sync failed", "op", op, "error", err)
			return
		}
		m.logger.Debug(ctx, "remote sync done", "op", op, "took", time.Since(start))
	}()
}
