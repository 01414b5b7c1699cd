// Package client contains the client-side transport and local persistence
// bootstrap for TeamDesk.
//
// # Overview
//
// The package provides:
//  1. GRPCClient, a docstore.Store backed by the hub's DocumentService. It
//     manages the connection, signs a short-lived team access token for every
//     call via an interceptor, and maps gRPC status codes to sentinel errors.
//  2. Local persistence bootstrap (InitDatabase, RunMigrations) for the CLI,
//     opening an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized.
package client
