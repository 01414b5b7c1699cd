package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/teamdesk/internal/flagx"
	"github.com/dmitrijs2005/teamdesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. SyncTimeout
// accepts "10s" style strings or integer nanoseconds.
type JsonConfig struct {
	DatabasePath       string         `json:"database_path"`
	Mirror             string         `json:"mirror"`
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	TeamSecret         string         `json:"team_secret"`
	SyncTimeout        timex.Duration `json:"sync_timeout"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	S3User             string         `json:"s3_user"`
	S3Password         string         `json:"s3_password"`
	LogLevel           string         `json:"log_level"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// Keys absent from the file keep their current value. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.DatabasePath, jc.DatabasePath)
	set(&cfg.Mirror, jc.Mirror)
	set(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	set(&cfg.TeamSecret, jc.TeamSecret)
	set(&cfg.S3Bucket, jc.S3Bucket)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	set(&cfg.S3User, jc.S3User)
	set(&cfg.S3Password, jc.S3Password)
	set(&cfg.LogLevel, jc.LogLevel)
	if jc.SyncTimeout.Duration > 0 {
		cfg.SyncTimeout = jc.SyncTimeout.Duration
	}
}
