package service

import (
	"context"

	"attest/internal/certificate/certid"
	"attest/internal/certificate/models"
	dErrors "attest/pkg/domain-errors"
)

// Verify resolves an identifier to a verdict. Lexical validation runs before
// any store or network access; the authoritative store decides existence; a
// fresh ledger read decides trust. Ledger unavailability yields the degraded
// verdict, never an error, and stored trust flags are never consulted in its
// place.
func (s *Service) Verify(ctx context.Context, id string) (models.VerifyResult, error) {
	result, err := s.verify(ctx, id)

	if s.metrics != nil {
		label := string(result.Verdict)
		if err != nil {
			label = string(dErrors.CodeOf(err))
		}
		s.metrics.Verifications.WithLabelValues(label).Inc()
	}
	return result, err
}

func (s *Service) verify(ctx context.Context, id string) (models.VerifyResult, error) {
	if !certid.Valid(id) {
		return models.VerifyResult{}, dErrors.New(dErrors.CodeInvalidIdentifier,
			"identifier must be 8 uppercase hex characters")
	}

	record, err := s.store.FindByIdentifier(ctx, id)
	if err != nil {
		return models.VerifyResult{}, err
	}

	result := models.VerifyResult{
		Record:  record,
		Verdict: models.VerdictLedgerAbsentOrUnverified,
	}

	// A revoked certificate is never vouched for, whatever the ledger says.
	if record.Revoked {
		return result, nil
	}

	entry, err := s.ledger.ReadEntry(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("ledger read failed during verification, degrading verdict",
				"certificate_id", id,
				"error", err,
			)
		}
		return result, nil
	}
	if entry.Exists && entry.SubjectID == record.SubjectID {
		result.Verdict = models.VerdictLedgerConfirmed
	}
	return result, nil
}
