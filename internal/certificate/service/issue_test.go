package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"attest/internal/certificate/models"
	"attest/internal/certificate/store"
	"attest/internal/ledger/provider"
	dErrors "attest/pkg/domain-errors"
)

func (s *ServiceSuite) TestIssueWithConfirmedLedgerWrite() {
	req := s.newIssueRequest()
	s.expectNoDuplicate()
	s.mockLedger.EXPECT().WriteCapable().Return(true)
	s.mockLedger.EXPECT().
		SubmitCertificate(s.ctx, provider.WriteRequest{
			ID:          testID,
			SubjectID:   testSubject,
			SubjectName: "Ada Lovelace",
			Course:      testCourse,
			IssuerName:  testIssuer,
		}).
		Return(testTxRef, nil)

	expected := s.newRecord()
	expected.LedgerVerified = true
	expected.LedgerTxRef = testTxRef
	s.mockStore.EXPECT().Insert(gomock.Any(), expected).Return(nil)

	result, err := s.service.Issue(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.LedgerStatusConfirmed, result.LedgerStatus)
	s.Empty(result.LedgerReason)
	s.True(result.Record.LedgerVerified)
	s.Equal(testTxRef, result.Record.LedgerTxRef)
}

func (s *ServiceSuite) TestIssueSucceedsWhenLedgerWriteFails() {
	req := s.newIssueRequest()
	s.expectNoDuplicate()
	s.mockLedger.EXPECT().WriteCapable().Return(true)
	s.mockLedger.EXPECT().
		SubmitCertificate(s.ctx, gomock.Any()).
		Return("", dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds"))

	// Persisted anyway, with the trust flag down and no transaction reference.
	s.mockStore.EXPECT().Insert(gomock.Any(), s.newRecord()).Return(nil)

	result, err := s.service.Issue(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.LedgerStatusFailed, result.LedgerStatus)
	s.Equal("insufficient_funds", result.LedgerReason)
	s.False(result.Record.LedgerVerified)
	s.Empty(result.Record.LedgerTxRef)
}

func (s *ServiceSuite) TestIssueSkipsLedgerWithoutWriteCapableConnection() {
	req := s.newIssueRequest()
	s.expectNoDuplicate()
	s.mockLedger.EXPECT().WriteCapable().Return(false)
	s.mockStore.EXPECT().Insert(gomock.Any(), s.newRecord()).Return(nil)

	result, err := s.service.Issue(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.LedgerStatusSkipped, result.LedgerStatus)
	s.False(result.Record.LedgerVerified)
}

func (s *ServiceSuite) TestIssueSkipsLedgerWhenNotRequested() {
	req := s.newIssueRequest()
	req.LedgerWrite = false
	s.expectNoDuplicate()
	s.mockStore.EXPECT().Insert(gomock.Any(), s.newRecord()).Return(nil)

	result, err := s.service.Issue(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.LedgerStatusSkipped, result.LedgerStatus)
}

func (s *ServiceSuite) TestIssueRejectsDuplicate() {
	req := s.newIssueRequest()
	existing := s.newRecord()
	s.mockStore.EXPECT().
		FindBySubjectAndCourse(s.ctx, testSubject, testCourse).
		Return(existing, nil)

	_, err := s.service.Issue(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCredential))
}

func (s *ServiceSuite) TestIssueRejectsMissingFields() {
	req := s.newIssueRequest()
	req.Course = "   "

	// No store or ledger calls: validation fails first.
	_, err := s.service.Issue(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestIssueTrimsFields() {
	req := s.newIssueRequest()
	req.SubjectName = "  Ada Lovelace  "
	s.expectNoDuplicate()
	s.mockLedger.EXPECT().WriteCapable().Return(false)
	s.mockStore.EXPECT().Insert(gomock.Any(), s.newRecord()).Return(nil)

	result, err := s.service.Issue(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", result.Record.SubjectName)
}

func (s *ServiceSuite) TestIssueRegeneratesOnIdentifierCollision() {
	ids := []string{testID, testAltID}
	s.service = New(
		s.mockStore,
		s.mockLedger,
		WithClock(func() time.Time { return s.issuedAt }),
		WithIdentifierFunc(func(_, _, _, _ string) (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		}),
	)

	req := s.newIssueRequest()
	req.LedgerWrite = false
	s.mockStore.EXPECT().
		FindBySubjectAndCourse(s.ctx, testSubject, testCourse).
		Return(models.CertificateRecord{}, store.ErrNotFound)
	s.mockStore.EXPECT().
		FindByIdentifier(s.ctx, testID).
		Return(models.CertificateRecord{ID: testID}, nil)
	s.mockStore.EXPECT().
		FindByIdentifier(s.ctx, testAltID).
		Return(models.CertificateRecord{}, store.ErrNotFound)

	expected := s.newRecord()
	expected.ID = testAltID
	s.mockStore.EXPECT().Insert(gomock.Any(), expected).Return(nil)

	result, err := s.service.Issue(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(testAltID, result.Record.ID)
}

func (s *ServiceSuite) TestIssueSurfacesInsertRace() {
	req := s.newIssueRequest()
	req.LedgerWrite = false
	s.expectNoDuplicate()
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(store.ErrDuplicate)

	// Lost the insert race: the store constraint wins over the fast path.
	_, err := s.service.Issue(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCredential))
}

func (s *ServiceSuite) TestIssueFailsOnStoreError() {
	req := s.newIssueRequest()
	req.LedgerWrite = false
	s.expectNoDuplicate()
	s.mockStore.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := s.service.Issue(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestIssuePersistsAfterCancelledConfirmationWait() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := s.newIssueRequest()
	s.mockStore.EXPECT().
		FindBySubjectAndCourse(ctx, testSubject, testCourse).
		Return(models.CertificateRecord{}, store.ErrNotFound)
	s.mockStore.EXPECT().
		FindByIdentifier(ctx, testID).
		Return(models.CertificateRecord{}, store.ErrNotFound)
	s.mockLedger.EXPECT().WriteCapable().Return(true)
	s.mockLedger.EXPECT().
		SubmitCertificate(ctx, gomock.Any()).
		DoAndReturn(func(context.Context, provider.WriteRequest) (string, error) {
			// The caller gives up mid-confirmation.
			cancel()
			return "", dErrors.New(dErrors.CodeCancelled, "confirmation wait cancelled")
		})
	// The insert honors its context the way the postgres store does; the
	// record must still land because the persist is detached from the
	// cancelled request.
	s.mockStore.EXPECT().
		Insert(gomock.Any(), s.newRecord()).
		DoAndReturn(func(insertCtx context.Context, _ models.CertificateRecord) error {
			return insertCtx.Err()
		})

	result, err := s.service.Issue(ctx, req)
	s.Require().NoError(err)
	s.Equal(models.LedgerStatusFailed, result.LedgerStatus)
	s.Equal("cancelled", result.LedgerReason)
	s.False(result.Record.LedgerVerified)
}

func (s *ServiceSuite) TestIssueRendersPreviewBeforeLedgerWrite() {
	s.service = New(
		s.mockStore,
		s.mockLedger,
		WithClock(func() time.Time { return s.issuedAt }),
		WithIdentifierFunc(func(_, _, _, _ string) (string, error) { return testID, nil }),
		WithRenderer(s.mockRenderer),
	)

	req := s.newIssueRequest()
	s.expectNoDuplicate()
	rendered := s.mockRenderer.EXPECT().
		RenderPreview(s.ctx, s.newRecord()).
		Return([]byte("preview"), nil)
	s.mockLedger.EXPECT().WriteCapable().Return(true).After(rendered)
	s.mockLedger.EXPECT().SubmitCertificate(s.ctx, gomock.Any()).Return(testTxRef, nil)

	expected := s.newRecord()
	expected.LedgerVerified = true
	expected.LedgerTxRef = testTxRef
	s.mockStore.EXPECT().Insert(gomock.Any(), expected).Return(nil)

	_, err := s.service.Issue(s.ctx, req)
	s.NoError(err)
}

func (s *ServiceSuite) TestIssueRenderFailureDoesNotFail() {
	s.service = New(
		s.mockStore,
		s.mockLedger,
		WithClock(func() time.Time { return s.issuedAt }),
		WithIdentifierFunc(func(_, _, _, _ string) (string, error) { return testID, nil }),
		WithRenderer(s.mockRenderer),
	)

	req := s.newIssueRequest()
	req.LedgerWrite = false
	s.expectNoDuplicate()
	s.mockStore.EXPECT().Insert(gomock.Any(), s.newRecord()).Return(nil)
	s.mockRenderer.EXPECT().
		RenderPreview(s.ctx, s.newRecord()).
		Return(nil, errors.New("template missing"))

	_, err := s.service.Issue(s.ctx, req)
	s.NoError(err)
}
