package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/teamdesk/internal/client/auth"
	"github.com/dmitrijs2005/teamdesk/internal/client/config"
	"github.com/dmitrijs2005/teamdesk/internal/client/repositories/kv"
	"github.com/dmitrijs2005/teamdesk/internal/docstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/memstore"
	"github.com/dmitrijs2005/teamdesk/internal/docstore/s3store"
	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Mirror = config.MirrorNone
	c.SyncTimeout = time.Second
	return c
}

// newTestApp wires an App over in-memory storage, bootstraps it and feeds
// input as the user's keyboard. Passwords are read as plain lines.
func newTestApp(t *testing.T, store docstore.Store, input string) (*App, *bytes.Buffer) {
	t.Helper()
	stubTerminal(t, false, nil, errors.New("terminal not expected"))

	a, err := newApp(context.Background(), testConfig(), logging.NopLogger{}, kv.NewMemoryRepository(), store, "device-1")
	require.NoError(t, err)

	state, err := a.flow.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, auth.LoggedOut, state)

	var out bytes.Buffer
	a.out = &out
	a.reader = rdr(input)
	t.Cleanup(a.Close)
	return a, &out
}

func TestNewApp_OfflineMirror(t *testing.T) {
	c := testConfig()
	c.DatabasePath = filepath.Join(t.TempDir(), "teamdesk.db")

	a, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.db)
	assert.Nil(t, a.remote)
	assert.Empty(t, a.dir.List())
}

func TestNewApp_UnknownMirror(t *testing.T) {
	c := testConfig()
	c.DatabasePath = filepath.Join(t.TempDir(), "teamdesk.db")
	c.Mirror = "carrier-pigeon"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mirror")
}

func TestOpenRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("grpc", func(t *testing.T) {
		c := testConfig()
		c.Mirror = config.MirrorGRPC

		store, closer, err := openRemote(ctx, c, "dev")
		require.NoError(t, err)
		require.NotNil(t, store)
		require.NotNil(t, closer)
		assert.NoError(t, closer.Close())
	})

	t.Run("s3", func(t *testing.T) {
		var got s3store.Config
		orig := newS3Store
		newS3Store = func(_ context.Context, cfg s3store.Config) (docstore.Store, error) {
			got = cfg
			return memstore.New(), nil
		}
		t.Cleanup(func() { newS3Store = orig })

		c := testConfig()
		c.Mirror = config.MirrorS3
		c.S3Bucket = "b"
		c.S3User = "u"
		c.S3Password = "p"

		store, closer, err := openRemote(ctx, c, "dev")
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.Nil(t, closer)
		assert.Equal(t, "b", got.Bucket)
		assert.Equal(t, "u", got.AccessKey)
		assert.Equal(t, "p", got.SecretKey)
	})

	t.Run("s3 error", func(t *testing.T) {
		orig := newS3Store
		newS3Store = func(context.Context, s3store.Config) (docstore.Store, error) {
			return nil, errors.New("no creds")
		}
		t.Cleanup(func() { newS3Store = orig })

		c := testConfig()
		c.Mirror = config.MirrorS3

		store, _, err := openRemote(ctx, c, "dev")
		assert.EqualError(t, err, "no creds")
		assert.Nil(t, store)
	})

	t.Run("none", func(t *testing.T) {
		store, closer, err := openRemote(ctx, testConfig(), "dev")
		require.NoError(t, err)
		assert.Nil(t, store)
		assert.Nil(t, closer)
	})
}

func TestRun_BootstrapsAndExits(t *testing.T) {
	capturePrint(t)

	a, err := newApp(context.Background(), testConfig(), logging.NopLogger{}, kv.NewMemoryRepository(), nil, "dev")
	require.NoError(t, err)
	var out bytes.Buffer
	a.out = &out
	a.reader = rdr("exit\n")

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "Welcome to TeamDesk CLI")
	_, ok := a.dir.Find("admin")
	assert.True(t, ok)
}
