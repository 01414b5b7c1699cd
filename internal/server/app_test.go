package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/teamdesk/internal/docstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/memstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/s3store"
	"github.com/dmitrijs2005/teamdesk/internal/server/config"
)

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), &config.Config{Storage: config.StorageMemory})
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, app.store)
}

func TestNewApp_UnknownStorage(t *testing.T) {
	_, err := NewApp(context.Background(), &config.Config{Storage: "floppy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func TestNewApp_S3(t *testing.T) {
	orig := newS3Store
	t.Cleanup(func() { newS3Store = orig })

	var got s3store.Config
	newS3Store = func(ctx context.Context, cfg s3store.Config) (docstore.Store, error) {
		got = cfg
		return memstore.New(), nil
	}

	c := &config.Config{Storage: config.StorageS3, S3Bucket: "b", S3Region: "r", S3RootUser: "u", S3RootPassword: "p", S3BaseEndpoint: "http://e"}
	_, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, s3store.Config{Bucket: "b", Region: "r", BaseEndpoint: "http://e", AccessKey: "u", SecretKey: "p"}, got)

	newS3Store = func(ctx context.Context, cfg s3store.Config) (docstore.Store, error) {
		return nil, errors.New("no creds")
	}
	_, err = NewApp(context.Background(), c)
	require.ErrorContains(t, err, "s3 init error")
}

func TestNewApp_PostgresOpenError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string) (*sql.DB, error) { return nil, errors.New("bad dsn") }

	_, err := NewApp(context.Background(), &config.Config{Storage: config.StoragePostgres})
	require.ErrorContains(t, err, "db init error")
}

func TestNewApp_PostgresMigrationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	t.Cleanup(func() { _ = db.Close() })

	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string) (*sql.DB, error) { return db, nil }

	// goose queries the version table first; the mock has no expectation for it.
	_, err = NewApp(context.Background(), &config.Config{Storage: config.StoragePostgres})
	require.ErrorContains(t, err, "db migrations error")
}

func TestRun_StopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), &config.Config{Storage: config.StorageMemory, EndpointAddrGRPC: "127.0.0.1:0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
