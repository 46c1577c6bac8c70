package store

import (
	"context"
	"sync"
	"time"

	"attest/internal/certificate/models"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
// The insert path holds the lock across the duplicate scan and the write, so it
// gives the same check-then-act guarantee the postgres unique index does.
type InMemoryStore struct {
	mu           sync.RWMutex
	certificates map[string]models.CertificateRecord
}

// NewInMemoryStore constructs an empty in-memory certificate store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{certificates: make(map[string]models.CertificateRecord)}
}

// Insert stores a new record, rejecting identifier reuse and non-revoked
// duplicates for the same (subject, course).
func (s *InMemoryStore) Insert(_ context.Context, record models.CertificateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certificates[record.ID]; ok {
		return ErrDuplicate
	}
	for _, c := range s.certificates {
		if !c.Revoked && c.SubjectID == record.SubjectID && c.Course == record.Course {
			return ErrDuplicate
		}
	}
	s.certificates[record.ID] = record
	return nil
}

// FindByIdentifier retrieves a record by identifier or returns ErrNotFound.
func (s *InMemoryStore) FindByIdentifier(_ context.Context, id string) (models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.certificates[id]; ok {
		return c, nil
	}
	return models.CertificateRecord{}, ErrNotFound
}

// FindBySubjectAndCourse returns the non-revoked record for the pair.
func (s *InMemoryStore) FindBySubjectAndCourse(_ context.Context, subjectID, course string) (models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.certificates {
		if !c.Revoked && c.SubjectID == subjectID && c.Course == course {
			return c, nil
		}
	}
	return models.CertificateRecord{}, ErrNotFound
}

// MarkRevoked flips the revocation flag for the given identifier.
func (s *InMemoryStore) MarkRevoked(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	c.Revoked = true
	c.RevokedAt = &now
	s.certificates[id] = c
	return nil
}
