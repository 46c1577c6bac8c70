package service

import (
	"time"

	"attest/internal/certificate/models"
	"attest/internal/certificate/store"
	"attest/internal/ledger/contract"
	dErrors "attest/pkg/domain-errors"
)

func (s *ServiceSuite) TestVerifyLedgerConfirmed() {
	record := s.newRecord()
	record.LedgerVerified = true
	record.LedgerTxRef = testTxRef
	s.mockStore.EXPECT().FindByIdentifier(s.ctx, testID).Return(record, nil)
	s.mockLedger.EXPECT().ReadEntry(s.ctx, testID).Return(contract.Entry{
		ID:        testID,
		SubjectID: testSubject,
		Exists:    true,
	}, nil)

	result, err := s.service.Verify(s.ctx, testID)
	s.Require().NoError(err)
	s.Equal(models.VerdictLedgerConfirmed, result.Verdict)
	s.Equal(testID, result.Record.ID)
}

func (s *ServiceSuite) TestVerifyAbsentFromLedger() {
	s.mockStore.EXPECT().FindByIdentifier(s.ctx, testID).Return(s.newRecord(), nil)
	s.mockLedger.EXPECT().ReadEntry(s.ctx, testID).Return(contract.Entry{Exists: false}, nil)

	result, err := s.service.Verify(s.ctx, testID)
	s.Require().NoError(err)
	s.Equal(models.VerdictLedgerAbsentOrUnverified, result.Verdict)
}

func (s *ServiceSuite) TestVerifyDegradesWhenLedgerUnreachable() {
	// Stored trust flag must not stand in for a live read.
	record := s.newRecord()
	record.LedgerVerified = true
	s.mockStore.EXPECT().FindByIdentifier(s.ctx, testID).Return(record, nil)
	s.mockLedger.EXPECT().
		ReadEntry(s.ctx, testID).
		Return(contract.Entry{}, dErrors.New(dErrors.CodeNoProvider, "no ledger provider available"))

	result, err := s.service.Verify(s.ctx, testID)
	s.Require().NoError(err)
	s.Equal(models.VerdictLedgerAbsentOrUnverified, result.Verdict)
}

func (s *ServiceSuite) TestVerifySubjectMismatchDegrades() {
	s.mockStore.EXPECT().FindByIdentifier(s.ctx, testID).Return(s.newRecord(), nil)
	s.mockLedger.EXPECT().ReadEntry(s.ctx, testID).Return(contract.Entry{
		ID:        testID,
		SubjectID: "someone-else",
		Exists:    true,
	}, nil)

	result, err := s.service.Verify(s.ctx, testID)
	s.Require().NoError(err)
	s.Equal(models.VerdictLedgerAbsentOrUnverified, result.Verdict)
}

func (s *ServiceSuite) TestVerifyRevokedNeverConfirmed() {
	record := s.newRecord()
	record.Revoked = true
	revokedAt := s.issuedAt.Add(24 * time.Hour)
	record.RevokedAt = &revokedAt
	s.mockStore.EXPECT().FindByIdentifier(s.ctx, testID).Return(record, nil)
	// No ledger read for revoked records.

	result, err := s.service.Verify(s.ctx, testID)
	s.Require().NoError(err)
	s.Equal(models.VerdictLedgerAbsentOrUnverified, result.Verdict)
	s.True(result.Record.Revoked)
}

func (s *ServiceSuite) TestVerifyRejectsMalformedIdentifier() {
	// Lexical validation runs before any store or ledger access.
	for _, id := range []string{"", "1a2b3c4d", "1A2B3C4", "1A2B3C4DE", "XYZW1234", "1A2B 3C4"} {
		_, err := s.service.Verify(s.ctx, id)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentifier), "id %q", id)
	}
}

func (s *ServiceSuite) TestVerifyNotFound() {
	s.mockStore.EXPECT().
		FindByIdentifier(s.ctx, testID).
		Return(models.CertificateRecord{}, store.ErrNotFound)

	_, err := s.service.Verify(s.ctx, testID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGetValidatesIdentifier() {
	_, err := s.service.Get(s.ctx, "not-an-id")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
}

func (s *ServiceSuite) TestGet() {
	s.mockStore.EXPECT().FindByIdentifier(s.ctx, testID).Return(s.newRecord(), nil)
	record, err := s.service.Get(s.ctx, testID)
	s.Require().NoError(err)
	s.Equal(testID, record.ID)
}

func (s *ServiceSuite) TestRevoke() {
	s.mockStore.EXPECT().MarkRevoked(s.ctx, testID).Return(nil)
	s.NoError(s.service.Revoke(s.ctx, testID))
}

func (s *ServiceSuite) TestRevokeNotFound() {
	s.mockStore.EXPECT().MarkRevoked(s.ctx, testID).Return(store.ErrNotFound)
	err := s.service.Revoke(s.ctx, testID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRevokeRejectsMalformedIdentifier() {
	s.True(dErrors.HasCode(s.service.Revoke(s.ctx, "bad"), dErrors.CodeInvalidIdentifier))
}
