// Package certid derives the short unique identifier a certificate is known by.
package certid

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// pattern is the lexical shape of every identifier: 8 uppercase hex characters.
var pattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

// payload is the digested issuance snapshot. The instant and nonce make the
// identifier a unique handle rather than a content address: it cannot be
// re-derived from the four business fields alone.
type payload struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Course      string `json:"course"`
	IssuerName  string `json:"issuer_name"`
	Timestamp   int64  `json:"timestamp"`
	Nonce       string `json:"nonce"`
}

// New derives an 8-character uppercase hex identifier from the issuance facts.
// The 32-bit truncation keeps single-call collision probability negligible but
// makes collisions checkable past tens of thousands of entries; callers must
// re-check uniqueness against the authoritative store before accepting.
func New(subjectID, subjectName, course, issuerName string) (string, error) {
	p := payload{
		SubjectID:   strings.TrimSpace(subjectID),
		SubjectName: strings.TrimSpace(subjectName),
		Course:      strings.TrimSpace(course),
		IssuerName:  strings.TrimSpace(issuerName),
		Timestamp:   time.Now().UnixMilli(),
		Nonce:       uuid.NewString(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal identifier payload: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(keccakDigest(raw)[:4])), nil
}

// keccakDigest is the legacy keccak-256 the certificate ledger itself hashes
// with, not NIST SHA3-256.
func keccakDigest(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}

// Valid reports whether s has the lexical shape of a certificate identifier.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
