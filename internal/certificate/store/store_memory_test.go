package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/certificate/models"
	dErrors "attest/pkg/domain-errors"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) record(id, subject, course string) models.CertificateRecord {
	return models.CertificateRecord{
		ID:          id,
		SubjectID:   subject,
		SubjectName: "Ada Lovelace",
		Course:      course,
		IssuerName:  "Acme U",
		CreatedAt:   time.Now(),
	}
}

func (s *InMemoryStoreSuite) TestInsertAndFind() {
	rec := s.record("1A2B3C4D", "S1", "Algorithms")
	s.Require().NoError(s.store.Insert(s.ctx, rec))

	got, err := s.store.FindByIdentifier(s.ctx, "1A2B3C4D")
	s.Require().NoError(err)
	s.Equal(rec.SubjectID, got.SubjectID)

	got, err = s.store.FindBySubjectAndCourse(s.ctx, "S1", "Algorithms")
	s.Require().NoError(err)
	s.Equal("1A2B3C4D", got.ID)
}

func (s *InMemoryStoreSuite) TestFindMissing() {
	_, err := s.store.FindByIdentifier(s.ctx, "00000000")
	s.ErrorIs(err, ErrNotFound)

	_, err = s.store.FindBySubjectAndCourse(s.ctx, "S1", "Algorithms")
	s.ErrorIs(err, ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDuplicateSubjectCourse() {
	s.Require().NoError(s.store.Insert(s.ctx, s.record("1A2B3C4D", "S1", "Algorithms")))

	err := s.store.Insert(s.ctx, s.record("5E6F7A8B", "S1", "Algorithms"))
	s.ErrorIs(err, ErrDuplicate)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCredential))

	// Different course for the same subject is fine.
	s.NoError(s.store.Insert(s.ctx, s.record("5E6F7A8B", "S1", "Databases")))
}

func (s *InMemoryStoreSuite) TestDuplicateIdentifier() {
	s.Require().NoError(s.store.Insert(s.ctx, s.record("1A2B3C4D", "S1", "Algorithms")))
	s.ErrorIs(s.store.Insert(s.ctx, s.record("1A2B3C4D", "S2", "Databases")), ErrDuplicate)
}

func (s *InMemoryStoreSuite) TestRevokedDuplicateAllowed() {
	s.Require().NoError(s.store.Insert(s.ctx, s.record("1A2B3C4D", "S1", "Algorithms")))
	s.Require().NoError(s.store.MarkRevoked(s.ctx, "1A2B3C4D"))

	// A revoked certificate no longer blocks reissuance and is excluded from
	// the duplicate lookup.
	_, err := s.store.FindBySubjectAndCourse(s.ctx, "S1", "Algorithms")
	s.ErrorIs(err, ErrNotFound)
	s.NoError(s.store.Insert(s.ctx, s.record("5E6F7A8B", "S1", "Algorithms")))
}

func (s *InMemoryStoreSuite) TestMarkRevokedMissing() {
	s.ErrorIs(s.store.MarkRevoked(s.ctx, "00000000"), ErrNotFound)
}
