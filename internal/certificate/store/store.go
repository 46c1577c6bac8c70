package store

import (
	"context"

	"attest/internal/certificate/models"
	dErrors "attest/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "certificate not found")
	// ErrDuplicate is returned when the insert would violate the one
	// non-revoked certificate per (subject, course) constraint. The store is
	// the real duplicate guarantee; the service's upfront check is a fast path.
	ErrDuplicate = dErrors.New(dErrors.CodeDuplicateCredential, "certificate already exists for subject and course")
)

// Store is the authoritative certificate store. Insert is atomic per record;
// this subsystem performs no cross-record transactions.
type Store interface {
	Insert(ctx context.Context, record models.CertificateRecord) error
	FindByIdentifier(ctx context.Context, id string) (models.CertificateRecord, error)
	// FindBySubjectAndCourse returns the existing non-revoked certificate for
	// the pair, or ErrNotFound.
	FindBySubjectAndCourse(ctx context.Context, subjectID, course string) (models.CertificateRecord, error)
	// MarkRevoked flips the revocation flag. Owned by collaborators outside
	// the issuance/verification engine; the coordinator never calls it.
	MarkRevoked(ctx context.Context, id string) error
}
