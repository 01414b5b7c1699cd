// Package auth drives the login state machine on top of the directory, the
// hash engine and the session slot.
//
// States move LoggedOut -> Authenticating -> LoggedIn on a successful login,
// Authenticating -> LoggedOut on any failure, and LoggedIn -> LoggedOut on
// Logout. Unknown usernames and wrong passwords fail identically.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/teamdesk/internal/client/models"
	"github.com/dmitrijs2005/teamdesk/internal/common"
	"github.com/dmitrijs2005/teamdesk/internal/cryptox"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

type State int

const (
	LoggedOut State = iota
	Authenticating
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case Authenticating:
		return "authenticating"
	case LoggedIn:
		return "logged in"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Directory is the subset of the user directory the flow needs.
type Directory interface {
	Find(username string) (*models.User, bool)
	Update(ctx context.Context, username string, patch models.UserPatch) error
	EnsureDefaultUser(ctx context.Context) error
}

// Mirror hydrates the directory before seeding.
type Mirror interface {
	Pull(ctx context.Context)
}

// Sessions is the local session slot.
type Sessions interface {
	Login(ctx context.Context, user models.User) error
	Current(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error
}

type Flow struct {
	dir      Directory
	mirror   Mirror
	sessions Sessions
	logger   logging.Logger

	// login serializes Login calls; mu guards state.
	login sync.Mutex
	mu    sync.RWMutex
	state State
}

// dummyHash is verified against when the username is unknown, so both failure
// paths cost one key derivation.
var (
	dummyOnce sync.Once
	dummyHash string
)

func equalizeTiming(password string) {
	dummyOnce.Do(func() {
		h, err := cryptox.HashPassword("teamdesk-dummy")
		if err != nil {
			h = cryptox.LegacyHash("teamdesk-dummy")
		}
		dummyHash = h
	})
	cryptox.VerifyPassword(password, dummyHash)
}

func New(dir Directory, mirror Mirror, sessions Sessions, logger logging.Logger) *Flow {
	return &Flow{
		dir:      dir,
		mirror:   mirror,
		sessions: sessions,
		logger:   logger.With("module", "auth"),
	}
}

// Bootstrap runs the start-up sequence: pull the remote directory, seed the
// default user if nothing arrived, then restore the session slot.
func (f *Flow) Bootstrap(ctx context.Context) (State, error) {
	f.mirror.Pull(ctx)

	if err := f.dir.EnsureDefaultUser(ctx); err != nil {
		return f.setState(LoggedOut), fmt.Errorf("seed default user: %w", err)
	}

	s, err := f.sessions.Current(ctx)
	if err != nil {
		return f.setState(LoggedOut), err
	}
	if s == nil {
		return f.setState(LoggedOut), nil
	}
	f.logger.Info(ctx, "session restored", "username", s.Username)
	return f.setState(LoggedIn), nil
}

// Login verifies the credentials and opens a session. Any mismatch returns
// common.ErrInvalidCredentials.
func (f *Flow) Login(ctx context.Context, username, password string) (*models.Session, error) {
	f.login.Lock()
	defer f.login.Unlock()

	if f.State() == LoggedIn {
		return nil, common.ErrAlreadyLoggedIn
	}
	f.setState(Authenticating)

	user, ok := f.dir.Find(username)
	if !ok {
		equalizeTiming(password)
		f.setState(LoggedOut)
		f.logger.Info(ctx, "login rejected")
		return nil, common.ErrInvalidCredentials
	}
	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		f.setState(LoggedOut)
		f.logger.Info(ctx, "login rejected")
		return nil, common.ErrInvalidCredentials
	}

	if cryptox.NeedsRehash(user.PasswordHash) {
		if err := f.dir.Update(ctx, user.Username, models.UserPatch{Password: &password}); err != nil {
			f.logger.Warn(ctx, "credential upgrade failed", "username", user.Username, "error", err)
		} else {
			f.logger.Info(ctx, "credential upgraded", "username", user.Username)
		}
	}

	if err := f.sessions.Login(ctx, *user); err != nil {
		f.setState(LoggedOut)
		return nil, err
	}
	f.setState(LoggedIn)

	s := user.Session()
	f.logger.Info(ctx, "logged in", "username", s.Username, "role", s.Role)
	return &s, nil
}

// Logout clears the session slot. The directory is not touched.
func (f *Flow) Logout(ctx context.Context) error {
	if err := f.sessions.Logout(ctx); err != nil {
		return err
	}
	f.setState(LoggedOut)
	return nil
}

func (f *Flow) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Current returns the active session, nil when logged out.
func (f *Flow) Current(ctx context.Context) (*models.Session, error) {
	return f.sessions.Current(ctx)
}

func (f *Flow) setState(s State) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	return s
}
