// Package server initializes and runs the TeamDesk hub: it opens the
// configured document backend, handles graceful shutdown and serves the
// DocumentService over gRPC.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/teamdesk/internal/docstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/memstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/s3store"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
	"github.com/dmitrijs2005/teamdesk/internal/server/config"
	"github.com/dmitrijs2005/teamdesk/internal/server/repositories/repomanager"

	gs "github.com/dmitrijs2005/teamdesk/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  docstore.Store
	db     *sql.DB
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

var newS3Store = func(ctx context.Context, cfg s3store.Config) (docstore.Store, error) {
	return s3store.New(ctx, cfg)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	app := &App{config: c, logger: logger}

	switch c.Storage {
	case config.StoragePostgres:
		db, err := openDB(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db migrations error: %w", err)
		}
		app.db = db
		app.store = m.Documents(db)
	case config.StorageS3:
		s, err := newS3Store(ctx, s3store.Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		app.store = s
	case config.StorageMemory:
		app.store = memstore.New()
	default:
		return nil, fmt.Errorf("unknown storage %q", c.Storage)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.store, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is canceled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
