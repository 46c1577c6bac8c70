package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"attest/internal/certificate/models"
)

// PostgresStore persists certificates in PostgreSQL. The partial unique index
// on (subject_id, course) WHERE NOT revoked enforces duplicate detection at
// the store, closing the check-then-act race between concurrent issuances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Insert(ctx context.Context, record models.CertificateRecord) error {
	query := `
		INSERT INTO certificates
			(id, subject_id, subject_name, course, issuer_name, grade,
			 created_at, ledger_verified, ledger_tx_ref, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.SubjectID,
		record.SubjectName,
		record.Course,
		record.IssuerName,
		nullable(record.Grade),
		record.CreatedAt,
		record.LedgerVerified,
		nullable(record.LedgerTxRef),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIdentifier(ctx context.Context, id string) (models.CertificateRecord, error) {
	query := selectColumns + ` WHERE id = $1`
	record, err := scanCertificate(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CertificateRecord{}, ErrNotFound
		}
		return models.CertificateRecord{}, fmt.Errorf("find certificate by id: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindBySubjectAndCourse(ctx context.Context, subjectID, course string) (models.CertificateRecord, error) {
	query := selectColumns + `
		WHERE subject_id = $1 AND course = $2 AND NOT revoked
		ORDER BY created_at DESC
		LIMIT 1
	`
	record, err := scanCertificate(s.db.QueryRowContext(ctx, query, subjectID, course))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CertificateRecord{}, ErrNotFound
		}
		return models.CertificateRecord{}, fmt.Errorf("find certificate by subject and course: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE certificates SET revoked = true, revoked_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, subject_id, subject_name, course, issuer_name, grade,
		created_at, ledger_verified, ledger_tx_ref, revoked, revoked_at,
		verifications, downloads
	FROM certificates`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (models.CertificateRecord, error) {
	var (
		record      models.CertificateRecord
		grade       sql.NullString
		ledgerTxRef sql.NullString
		revokedAt   sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.SubjectID,
		&record.SubjectName,
		&record.Course,
		&record.IssuerName,
		&grade,
		&record.CreatedAt,
		&record.LedgerVerified,
		&ledgerTxRef,
		&record.Revoked,
		&revokedAt,
		&record.Verifications,
		&record.Downloads,
	)
	if err != nil {
		return models.CertificateRecord{}, err
	}
	record.Grade = grade.String
	record.LedgerTxRef = ledgerTxRef.String
	if revokedAt.Valid {
		t := revokedAt.Time
		record.RevokedAt = &t
	}
	return record, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
