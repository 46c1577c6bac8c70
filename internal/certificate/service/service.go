// Package service implements the issuance coordinator and verification
// resolver. The authoritative store is the source of record; the ledger is a
// trust anchor whose unavailability degrades trust, never availability.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"attest/internal/certificate/certid"
	"attest/internal/certificate/metrics"
	"attest/internal/certificate/models"
	"attest/internal/certificate/store"
	"attest/internal/ledger/contract"
	"attest/internal/ledger/provider"
	dErrors "attest/pkg/domain-errors"
)

// Ledger is the slice of the provider manager the service depends on.
type Ledger interface {
	WriteCapable() bool
	ReadEntry(ctx context.Context, id string) (contract.Entry, error)
	SubmitCertificate(ctx context.Context, req provider.WriteRequest) (string, error)
}

// Renderer produces the human-facing certificate document. Rendering is
// best-effort during issuance: a render failure is logged, not surfaced.
type Renderer interface {
	RenderPreview(ctx context.Context, record models.CertificateRecord) ([]byte, error)
}

// idAttempts bounds regeneration when a derived identifier is already taken.
const idAttempts = 3

// persistTimeout bounds the authoritative insert once the request context is
// no longer trusted to be alive.
const persistTimeout = 5 * time.Second

// Service coordinates issuance and verification over the store and ledger.
type Service struct {
	store  store.Store
	ledger Ledger

	renderer   Renderer
	generateID func(subjectID, subjectName, course, issuerName string) (string, error)
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics configures certificate metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRenderer configures the certificate document renderer.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithIdentifierFunc overrides identifier derivation (for testing).
func WithIdentifierFunc(f func(subjectID, subjectName, course, issuerName string) (string, error)) Option {
	return func(s *Service) { s.generateID = f }
}

// WithClock overrides the issuance timestamp source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the certificate service.
func New(st store.Store, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		store:      st,
		ledger:     ledger,
		generateID: certid.New,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue runs the issuance pipeline: duplicate check, identifier derivation,
// optional ledger write, unconditional persist. A failed ledger write degrades
// the record's trust flag but never fails the issuance; only validation,
// duplication, and store failures do.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (models.IssueResult, error) {
	start := time.Now()
	result, err := s.issue(ctx, req)

	if s.metrics != nil {
		if err != nil {
			s.metrics.IssueRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		} else {
			s.metrics.Issued.WithLabelValues(string(result.LedgerStatus)).Inc()
			s.metrics.IssueLatency.Observe(time.Since(start).Seconds())
		}
	}
	return result, err
}

func (s *Service) issue(ctx context.Context, req models.IssueRequest) (models.IssueResult, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.SubjectName = strings.TrimSpace(req.SubjectName)
	req.Course = strings.TrimSpace(req.Course)
	req.IssuerName = strings.TrimSpace(req.IssuerName)
	req.Grade = strings.TrimSpace(req.Grade)

	if req.SubjectID == "" || req.SubjectName == "" || req.Course == "" || req.IssuerName == "" {
		return models.IssueResult{}, dErrors.New(dErrors.CodeInvalidInput,
			"subject_id, subject_name, course, and issuer_name are required")
	}

	// Fast path: an existing live certificate for the pair rejects early,
	// before any identifier or ledger work. The store's uniqueness constraint
	// closes the remaining race at insert time.
	existing, err := s.store.FindBySubjectAndCourse(ctx, req.SubjectID, req.Course)
	switch {
	case err == nil:
		return models.IssueResult{}, dErrors.New(dErrors.CodeDuplicateCredential,
			"certificate "+existing.ID+" already exists for subject and course")
	case !dErrors.HasCode(err, dErrors.CodeNotFound):
		return models.IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check failed")
	}

	id, err := s.uniqueIdentifier(ctx, req)
	if err != nil {
		return models.IssueResult{}, err
	}

	record := models.CertificateRecord{
		ID:          id,
		SubjectID:   req.SubjectID,
		SubjectName: req.SubjectName,
		Course:      req.Course,
		IssuerName:  req.IssuerName,
		Grade:       req.Grade,
		CreatedAt:   s.now().UTC(),
	}

	if s.renderer != nil {
		if _, err := s.renderer.RenderPreview(ctx, record); err != nil && s.logger != nil {
			s.logger.Warn("certificate preview render failed",
				"certificate_id", record.ID,
				"error", err,
			)
		}
	}

	status := models.LedgerStatusSkipped
	reason := ""
	if req.LedgerWrite && s.ledger.WriteCapable() {
		txRef, err := s.ledger.SubmitCertificate(ctx, provider.WriteRequest{
			ID:          record.ID,
			SubjectID:   record.SubjectID,
			SubjectName: record.SubjectName,
			Course:      record.Course,
			IssuerName:  record.IssuerName,
		})
		if err != nil {
			status = models.LedgerStatusFailed
			reason = string(dErrors.CodeOf(err))
			if s.logger != nil {
				s.logger.Warn("ledger write failed, persisting with degraded trust",
					"certificate_id", record.ID,
					"reason", reason,
					"error", err,
				)
			}
		} else {
			status = models.LedgerStatusConfirmed
			record.LedgerVerified = true
			record.LedgerTxRef = txRef
		}
	}

	// Persist regardless of the ledger outcome. The trust flag is truthful:
	// it is set only above, on a confirmed write, and never retroactively.
	// The insert runs on a detached context: a caller cancel during the
	// confirmation wait classifies the write as cancelled, and a classified
	// write outcome must still reach the authoritative store.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.store.Insert(persistCtx, record); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.IssueResult{}, err
		}
		return models.IssueResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist certificate")
	}

	if s.logger != nil {
		s.logger.Info("certificate issued",
			"certificate_id", record.ID,
			"subject_id", record.SubjectID,
			"course", record.Course,
			"ledger_status", string(status),
		)
	}
	return models.IssueResult{Record: record, LedgerStatus: status, LedgerReason: reason}, nil
}

// uniqueIdentifier derives an identifier and re-checks it against the store,
// regenerating on the rare truncation collision.
func (s *Service) uniqueIdentifier(ctx context.Context, req models.IssueRequest) (string, error) {
	for attempt := 0; attempt < idAttempts; attempt++ {
		id, err := s.generateID(req.SubjectID, req.SubjectName, req.Course, req.IssuerName)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "derive identifier")
		}
		_, err = s.store.FindByIdentifier(ctx, id)
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id, nil
		}
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "identifier uniqueness check")
		}
		if s.logger != nil {
			s.logger.Warn("identifier collision, regenerating", "certificate_id", id)
		}
	}
	return "", dErrors.New(dErrors.CodeInternal, "could not derive a unique identifier")
}

// Get returns the authoritative record for an identifier.
func (s *Service) Get(ctx context.Context, id string) (models.CertificateRecord, error) {
	if !certid.Valid(id) {
		return models.CertificateRecord{}, dErrors.New(dErrors.CodeInvalidIdentifier,
			"identifier must be 8 uppercase hex characters")
	}
	return s.store.FindByIdentifier(ctx, id)
}

// Revoke flips the revocation flag on a certificate. Revocation is local only:
// any ledger entry stays in place, but verification stops vouching for the
// record.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if !certid.Valid(id) {
		return dErrors.New(dErrors.CodeInvalidIdentifier,
			"identifier must be 8 uppercase hex characters")
	}
	if err := s.store.MarkRevoked(ctx, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("certificate revoked", "certificate_id", id)
	}
	return nil
}
