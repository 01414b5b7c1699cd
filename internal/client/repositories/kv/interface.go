// Package kv is the client's local key/string store. The directory, the
// session slot and the device id each live under one key.
package kv

import "context"

// Repository is a synchronous key/string store. Writes are durable when the
// call returns.
type Repository interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the given keys atomically. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
}
