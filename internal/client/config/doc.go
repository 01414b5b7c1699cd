// Package config loads runtime configuration for the TeamDesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "database_path": "teamdesk.db",
//	  "mirror": "grpc",
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "team_secret": "change-me",
//	  "sync_timeout": "10s",
//	  "s3_bucket": "teamdesk",
//	  "s3_region": "us-east-1",
//	  "s3_base_endpoint": "http://127.0.0.1:9000/",
//	  "s3_user": "admin",
//	  "s3_password": "secretpassword",
//	  "log_level": "info"
//	}
package config
