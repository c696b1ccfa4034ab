package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store with in-process maps. It backs tests and
// credential-less local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]Fields // "collection/id"
	children map[string]Fields // "parentID/childCollection/childID"
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]Fields),
		children: make(map[string]Fields),
	}
}

// Upsert merges fields into the document, creating it when absent.
func (s *MemoryStore) Upsert(_ context.Context, collection, id string, fields Fields) (Fields, error) {
	key := collection + "/" + id

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[key]
	if !ok {
		doc = make(Fields, len(fields))
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.docs[key] = doc

	return cloneFields(doc), nil
}

// Get fetches a document or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection+"/"+id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFields(doc), nil
}

// AppendChild upserts a child document keyed by (parentID, childID).
func (s *MemoryStore) AppendChild(_ context.Context, parentID, childCollection, childID string, fields Fields) error {
	key := parentID + "/" + childCollection + "/" + childID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[key] = cloneFields(fields)
	return nil
}

// Children lists the child documents stored under a parent's child
// collection. Test helper; iteration order is unspecified.
func (s *MemoryStore) Children(parentID, childCollection string) []Fields {
	prefix := parentID + "/" + childCollection + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Fields
	for key, doc := range s.children {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, cloneFields(doc))
		}
	}
	return out
}
