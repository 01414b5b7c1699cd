// Package memstore is an in-process docstore.Store.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dmitrijs2005/teamdesk/internal/docstore"
)

// Store keeps collections in memory. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	data  map[string]map[string]json.RawMessage
	err   error
	calls int
}

func New() *Store {
	return &Store{data: make(map[string]map[string]json.RawMessage)}
}

// SetError makes every subsequent call fail with err. Pass nil to recover.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many operations were attempted, failed ones included.
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, 0, len(s.data[collection]))
	for id, body := range s.data[collection] {
		docs = append(docs, docstore.Document{ID: id, Data: append(json.RawMessage(nil), body...)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c, ok := s.data[collection]
	if !ok {
		c = make(map[string]json.RawMessage)
		s.data[collection] = c
	}
	c[id] = append(json.RawMessage(nil), data...)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(s.data[collection], id)
	return nil
}
