package config

import (
	"log/slog"
	"time"

	"github.com/dmitrijs2005/teamdesk/internal/logging"
)

// Mirror kinds the CLI can replicate the directory to.
const (
	MirrorGRPC = "grpc"
	MirrorS3   = "s3"
	MirrorNone = "none"
)

// Config holds runtime settings for the TeamDesk CLI.
//
// Fields:
//   - DatabasePath: SQLite file holding the directory, session and device id.
//   - Mirror: remote replication target, one of grpc, s3 or none.
//   - ServerEndpointAddr: host:port of the hub's gRPC endpoint.
//   - TeamSecret: shared secret used to sign hub access tokens.
//   - SyncTimeout: deadline for each pull or background push.
//   - S3*: bucket settings when Mirror is s3.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabasePath       string
	Mirror             string
	ServerEndpointAddr string
	TeamSecret         string
	SyncTimeout        time.Duration
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	S3User             string
	S3Password         string
	LogLevel           string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "teamdesk.db"
	c.Mirror = MirrorGRPC
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.TeamSecret = "secretKey"
	c.SyncTimeout = 10 * time.Second
	c.S3Bucket = "teamdesk"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.S3User = ""
	c.S3Password = ""
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// SlogLevel parses LogLevel, falling back to warn.
func (c *Config) SlogLevel() slog.Level {
	return logging.ParseLevel(c.LogLevel, slog.LevelWarn)
}
