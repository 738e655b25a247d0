package infrastructure

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dropvid/clip-processing-service/domain"
)

// In-memory implementations of the store interfaces, selected with
// STORAGE_BACKEND=memory. They back local development without AWS or
// Postgres and double as test substitutes, replacing the dynamic
// request-interception mock of the original system with plain
// polymorphism.

// ErrObjectNotFound is returned by MemoryObjectStore for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// MemoryObjectStore keeps objects in a map keyed by bucket/key.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: map[string][]byte{}}
}

func (s *MemoryObjectStore) Download(_ context.Context, bucket, key, localPath string) error {
	s.mu.Lock()
	data, ok := s.objects[bucket+"/"+key]
	s.mu.Unlock()
	if !ok {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: ErrObjectNotFound}
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *MemoryObjectStore) Upload(_ context.Context, localPath, bucket, key, _ string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}

	s.mu.Lock()
	s.objects[bucket+"/"+key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryObjectStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	delete(s.objects, bucket+"/"+key)
	s.mu.Unlock()
	return nil
}

// Put seeds an object directly, for development and tests.
func (s *MemoryObjectStore) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	s.objects[bucket+"/"+key] = append([]byte(nil), data...)
	s.mu.Unlock()
}

// Has reports whether an object exists.
func (s *MemoryObjectStore) Has(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+key]
	return ok
}

// MemoryProcessingRepository keeps processing records in a map with the
// same upsert-and-merge semantics as the Postgres repository.
type MemoryProcessingRepository struct {
	mu      sync.Mutex
	records map[string]*domain.ProcessingRecord
}

func NewMemoryProcessingRepository() *MemoryProcessingRepository {
	return &MemoryProcessingRepository{records: map[string]*domain.ProcessingRecord{}}
}

func (r *MemoryProcessingRepository) RecordStatus(_ context.Context, id, ownerID string, status domain.ProcessingStatus, details map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		rec = &domain.ProcessingRecord{ID: id, Details: map[string]string{}, CreatedAt: time.Now().UTC()}
		r.records[id] = rec
	}
	if ownerID != "" {
		rec.OwnerID = ownerID
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	for k, v := range details {
		rec.Details[k] = v
	}
	return nil
}

func (r *MemoryProcessingRepository) Find(_ context.Context, id string) (*domain.ProcessingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, errors.New("processing record not found")
	}
	cp := *rec
	cp.Details = make(map[string]string, len(rec.Details))
	for k, v := range rec.Details {
		cp.Details[k] = v
	}
	return &cp, nil
}
