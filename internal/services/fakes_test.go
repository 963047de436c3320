package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/sudleather/nfe-ingest/internal/models"
)

// fakeStore is an in-memory ObjectStore keyed by "bucket/object".
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// failMove makes every Move fail with a generic error.
	failMove bool
	moves    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) put(bucket, object string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+object] = data
}

func (s *fakeStore) has(bucket, object string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+object]
	return ok
}

func (s *fakeStore) FetchText(ctx context.Context, bucket, object string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+object]
	if !ok {
		return nil, fmt.Errorf("fetch gs://%s/%s: %w", bucket, object, storage.ErrObjectNotExist)
	}
	return data, nil
}

func (s *fakeStore) Move(ctx context.Context, bucket, src, dst string) error {
	if s.failMove {
		return errors.New("copy failed: backend unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+src]
	if !ok {
		return fmt.Errorf("copy gs://%s/%s: %w", bucket, src, storage.ErrObjectNotExist)
	}
	s.objects[bucket+"/"+dst] = data
	delete(s.objects, bucket+"/"+src)
	s.moves++
	return nil
}

// fakeMerger applies the same key-conditional insert the MERGE statement
// performs, against an in-memory table.
type fakeMerger struct {
	mu       sync.Mutex
	table    map[string]models.ExtractedRow
	failWith error
}

func newFakeMerger() *fakeMerger {
	return &fakeMerger{table: map[string]models.ExtractedRow{}}
}

func (m *fakeMerger) Merge(ctx context.Context, rows []models.ExtractedRow) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if _, exists := m.table[row.Key()]; !exists {
			m.table[row.Key()] = row
		}
	}
	return nil
}
