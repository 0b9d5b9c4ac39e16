package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps content documents in process. It follows the same
// insert, merge and delete semantics as PostgresStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]Document
	now  func() time.Time
	err  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]Document{}, now: time.Now}
}

// Fail makes every subsequent call return err, until called with nil.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *MemoryStore) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	items := make([]Document, 0, len(s.docs[collection]))
	for _, doc := range s.docs[collection] {
		items = append(items, copyDocument(doc))
	}
	return items, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return Document{}, s.err
	}
	if i := s.indexOf(collection, id); i >= 0 {
		return copyDocument(s.docs[collection][i]), nil
	}
	return Document{}, sql.ErrNoRows
}

func (s *MemoryStore) InsertDocument(ctx context.Context, collection string, body json.RawMessage) (string, error) {
	normalized, err := normalizeBody(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	now := s.now()
	id := uuid.NewString()
	s.docs[collection] = append(s.docs[collection], Document{
		ID: id, Collection: collection, Body: normalized, CreatedAt: now, UpdatedAt: now,
	})
	return id, nil
}

func (s *MemoryStore) PutDocument(ctx context.Context, collection, id string, body json.RawMessage) error {
	normalized, err := normalizeBody(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	now := s.now()
	if i := s.indexOf(collection, id); i >= 0 {
		s.docs[collection][i].Body = normalized
		s.docs[collection][i].UpdatedAt = now
		return nil
	}
	s.docs[collection] = append(s.docs[collection], Document{
		ID: id, Collection: collection, Body: normalized, CreatedAt: now, UpdatedAt: now,
	})
	return nil
}

func (s *MemoryStore) MergeDocument(ctx context.Context, collection, id string, patch json.RawMessage) error {
	normalized, err := normalizeBody(patch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	i := s.indexOf(collection, id)
	if i < 0 {
		return sql.ErrNoRows
	}
	merged, err := mergeObjects(s.docs[collection][i].Body, normalized)
	if err != nil {
		return err
	}
	s.docs[collection][i].Body = merged
	s.docs[collection][i].UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if i := s.indexOf(collection, id); i >= 0 {
		docs := s.docs[collection]
		s.docs[collection] = append(docs[:i:i], docs[i+1:]...)
	}
	return nil
}

func (s *MemoryStore) indexOf(collection, id string) int {
	for i, doc := range s.docs[collection] {
		if doc.ID == id {
			return i
		}
	}
	return -1
}

func mergeObjects(base, patch json.RawMessage) (json.RawMessage, error) {
	var target map[string]json.RawMessage
	if err := json.Unmarshal(base, &target); err != nil {
		return nil, fmt.Errorf("decode stored body: %w", err)
	}
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if target == nil {
		target = map[string]json.RawMessage{}
	}
	for key, value := range changes {
		target[key] = value
	}
	return json.Marshal(target)
}

func copyDocument(doc Document) Document {
	doc.Body = append(json.RawMessage(nil), doc.Body...)
	return doc
}
