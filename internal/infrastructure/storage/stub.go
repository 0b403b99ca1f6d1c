package storage

import (
	"context"
	"errors"
	"sync"

	leadapp "github.com/leadflow/backend/internal/application/lead"
)

var _ leadapp.ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage keeps lead files in memory. Used when storage is
// disabled and in tests.
type StubObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]StoredObject
}

// StoredObject is a file held by the stub
type StoredObject struct {
	Data        []byte
	ContentType string
}

// NewStubObjectStorage creates an empty StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{objects: make(map[string]StoredObject)}
}

// Upload stores a copy of data
func (s *StubObjectStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = StoredObject{Data: buf, ContentType: contentType}
	return nil
}

// Get returns a stored file
func (s *StubObjectStorage) Get(storageKey string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	return obj, ok
}

// Len returns the number of stored files
func (s *StubObjectStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
