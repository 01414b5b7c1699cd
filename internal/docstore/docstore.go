// Package docstore defines the remote document-store contract the directory
// mirror writes to: named collections of JSON documents keyed by id.
//
// Implementations:
//   - client.GRPCClient: the TeamDesk hub server over gRPC
//   - s3store.Store: JSON objects in an S3-compatible bucket
//   - memstore.Store: in-process, for tests and single-device runs
package docstore

import (
	"context"
	"encoding/json"
)

// Document is one stored JSON body and its id within a collection.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Store is a remote collection of documents. Implementations must be safe
// for concurrent use; timeouts come from ctx.
type Store interface {
	// List returns every document in collection. An unknown collection is empty.
	List(ctx context.Context, collection string) ([]Document, error)
	// Upsert creates or replaces the document id in collection.
	Upsert(ctx context.Context, collection, id string, data json.RawMessage) error
	// Delete removes the document id. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}
