// Package models holds the certificate data model shared by store, service, and transport.
package models

import "time"

// LedgerStatus classifies the outcome of the ledger write attempted during issuance.
// It is a sub-status of a successful issuance, never a failure of it.
type LedgerStatus string

const (
	// LedgerStatusConfirmed means the ledger write was submitted and confirmed.
	LedgerStatusConfirmed LedgerStatus = "confirmed"
	// LedgerStatusSkipped means no write-capable connection was available or requested.
	LedgerStatusSkipped LedgerStatus = "skipped"
	// LedgerStatusFailed means a write was attempted and failed; the record was
	// persisted with degraded trust. Reason carries the classified failure code.
	LedgerStatusFailed LedgerStatus = "failed"
)

// Verdict is the trust classification returned by verification.
type Verdict string

const (
	// VerdictLedgerConfirmed requires a positive ledger read at verification time.
	VerdictLedgerConfirmed Verdict = "ledger_confirmed"
	// VerdictLedgerAbsentOrUnverified covers both "entry not on the ledger" and
	// "ledger unreachable"; authoritative-store presence alone never upgrades it.
	VerdictLedgerAbsentOrUnverified Verdict = "ledger_absent_or_unverified"
)

// CertificateRecord is the authoritative store's view of an issued credential.
// Created exactly once by the issuance coordinator; counters and the revocation
// flag are mutated later by collaborators outside this subsystem.
type CertificateRecord struct {
	ID             string     `json:"id"`
	SubjectID      string     `json:"subject_id"`
	SubjectName    string     `json:"subject_name"`
	Course         string     `json:"course"`
	IssuerName     string     `json:"issuer_name"`
	Grade          string     `json:"grade,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LedgerVerified bool       `json:"ledger_verified"`
	LedgerTxRef    string     `json:"ledger_tx_ref,omitempty"`
	Revoked        bool       `json:"revoked"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	Verifications  int64      `json:"verifications"`
	Downloads      int64      `json:"downloads"`
}

// IssueRequest carries the issuance facts plus whether a ledger write is wanted.
type IssueRequest struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Course      string `json:"course"`
	IssuerName  string `json:"issuer_name"`
	Grade       string `json:"grade,omitempty"`
	LedgerWrite bool   `json:"ledger_write"`
}

// IssueResult is the issuance outcome: the persisted record plus the ledger
// sub-status. LedgerReason names the classified write failure when the status
// is failed.
type IssueResult struct {
	Record       CertificateRecord `json:"record"`
	LedgerStatus LedgerStatus      `json:"ledger_status"`
	LedgerReason string            `json:"ledger_reason,omitempty"`
}

// VerifyResult merges the authoritative record with the ledger verdict.
type VerifyResult struct {
	Record  CertificateRecord `json:"record"`
	Verdict Verdict           `json:"verdict"`
}
