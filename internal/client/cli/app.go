package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/teamdesk/internal/client/auth"
	"github.com/dmitrijs2005/teamdesk/internal/client/client"
	"github.com/dmitrijs2005/teamdesk/internal/client/config"
	"github.com/dmitrijs2005/teamdesk/internal/client/device"
	"github.com/dmitrijs2005/teamdesk/internal/client/directory"
	"github.com/dmitrijs2005/teamdesk/internal/client/mirror"
	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
	"github.com/dmitrijs2005/teamdesk/internal/client/session"
	"github.com/dmitrijs2005/teamdesk/internal/docstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/s3store"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	remote   io.Closer
	dir      *directory.Store
	mirror   *mirror.Mirror
	sessions *session.Manager
	flow     *auth.Flow
	reader   *bufio.Reader
	out      io.Writer
}

// newS3Store is a seam for tests.
var newS3Store = func(ctx context.Context, cfg s3store.Config) (docstore.Store, error) {
	return s3store.New(ctx, cfg)
}

// openRemote builds the mirror's document store. A nil store means offline.
func openRemote(ctx context.Context, c *config.Config, deviceID string) (docstore.Store, io.Closer, error) {
	switch c.Mirror {
	case config.MirrorGRPC:
		gc, err := client.NewGRPCClient(c.ServerEndpointAddr, deviceID, c.TeamSecret)
		if err != nil {
			return nil, nil, err
		}
		return gc, gc, nil
	case config.MirrorS3:
		s, err := newS3Store(ctx, s3store.Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3User,
			SecretKey:    c.S3Password,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.MirrorNone:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown mirror %q", c.Mirror)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, c.SlogLevel())

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	repo := kv.NewSQLiteRepository(db)

	deviceID, err := device.ID(ctx, repo)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store, closer, err := openRemote(ctx, c, deviceID)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error initializing mirror: %w", err)
	}

	a, err := newApp(ctx, c, logger, repo, store, deviceID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	a.remote = closer
	return a, nil
}

// newApp wires the directory, mirror, session and flow around repo and store.
func newApp(ctx context.Context, c *config.Config, logger logging.Logger, repo kv.Repository, store docstore.Store, deviceID string) (*App, error) {
	dir, err := directory.New(ctx, repo, logger)
	if err != nil {
		return nil, err
	}
	m := mirror.New(store, dir, deviceID, c.SyncTimeout, logger)
	dir.SetSyncer(m)
	sessions := session.New(repo, logger)

	return &App{
		config:   c,
		logger:   logger,
		dir:      dir,
		mirror:   m,
		sessions: sessions,
		flow:     auth.New(dir, m, sessions, logger),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run bootstraps the directory and session, then serves the REPL until the
// user exits. Pending remote writes are flushed before returning.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	state, err := a.flow.Bootstrap(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug(ctx, "bootstrapped", "state", state.String())

	a.Root(ctx)
	return nil
}

// Close waits for background sync and releases the database and transport.
func (a *App) Close() {
	a.mirror.Wait()
	if a.remote != nil {
		_ = a.remote.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.flow.State() == auth.LoggedIn
}
