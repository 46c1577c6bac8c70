// Package contract encodes and decodes calls against the fixed certificate
// contract surface. The signatures are bit-exact for the deployed contract:
//
//	issueCertificate(string,string,string,string,string)
//	certificates(string) -> (string,string,string,string,string,uint256,address,bool)
package contract

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

const wordSize = 32

// Entry is the ledger's read-only view of a certificate. Exists=false is
// indistinguishable from "never written" and callers must treat both the same.
type Entry struct {
	ID            string
	SubjectID     string
	SubjectName   string
	Course        string
	IssuerName    string
	Timestamp     time.Time
	IssuerAddress string
	Exists        bool
}

// EncodeIssueCertificate builds the calldata for the issueCertificate write.
func EncodeIssueCertificate(id, subjectID, subjectName, course, issuerName string) string {
	data := append(
		selector("issueCertificate(string,string,string,string,string)"),
		packStrings(id, subjectID, subjectName, course, issuerName)...,
	)
	return "0x" + hex.EncodeToString(data)
}

// EncodeCertificatesQuery builds the calldata for the certificates mapping lookup.
func EncodeCertificatesQuery(id string) string {
	data := append(selector("certificates(string)"), packStrings(id)...)
	return "0x" + hex.EncodeToString(data)
}

// DecodeCertificate parses the certificates(id) return data into an Entry.
func DecodeCertificate(hexData string) (Entry, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return Entry{}, fmt.Errorf("decode return data: %w", err)
	}
	// Head is eight words: five string offsets, timestamp, issuer, exists.
	if len(raw) < 8*wordSize {
		return Entry{}, fmt.Errorf("return data too short: %d bytes", len(raw))
	}

	var fields [5]string
	for i := range fields {
		s, err := stringAt(raw, i)
		if err != nil {
			return Entry{}, err
		}
		fields[i] = s
	}

	ts, err := wordUint(raw, 5)
	if err != nil {
		return Entry{}, err
	}

	issuerWord := raw[6*wordSize : 7*wordSize]
	issuer := "0x" + hex.EncodeToString(issuerWord[wordSize-20:])

	existsWord := raw[7*wordSize : 8*wordSize]
	exists := existsWord[wordSize-1] != 0

	return Entry{
		ID:            fields[0],
		SubjectID:     fields[1],
		SubjectName:   fields[2],
		Course:        fields[3],
		IssuerName:    fields[4],
		Timestamp:     time.Unix(int64(ts), 0).UTC(),
		IssuerAddress: issuer,
		Exists:        exists,
	}, nil
}

// selector is the first four bytes of the keccak-256 hash of the signature.
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// packStrings ABI-encodes a sequence of dynamic strings: a head of offsets
// followed by length-prefixed, zero-padded data.
func packStrings(ss ...string) []byte {
	head := make([]byte, 0, wordSize*len(ss))
	var tail []byte
	base := wordSize * len(ss)
	for _, s := range ss {
		head = append(head, word(uint64(base+len(tail)))...)
		tail = append(tail, word(uint64(len(s)))...)
		tail = append(tail, padded([]byte(s))...)
	}
	return append(head, tail...)
}

// word renders v as a 32-byte big-endian word.
func word(v uint64) []byte {
	w := make([]byte, wordSize)
	binary.BigEndian.PutUint64(w[wordSize-8:], v)
	return w
}

// padded right-pads b with zeros to a multiple of the word size.
func padded(b []byte) []byte {
	if rem := len(b) % wordSize; rem != 0 {
		return append(b, make([]byte, wordSize-rem)...)
	}
	return b
}

// wordUint reads head word i as a uint64, rejecting values beyond 64 bits.
func wordUint(raw []byte, i int) (uint64, error) {
	w := raw[i*wordSize : (i+1)*wordSize]
	for _, b := range w[:wordSize-8] {
		if b != 0 {
			return 0, fmt.Errorf("word %d overflows uint64", i)
		}
	}
	return binary.BigEndian.Uint64(w[wordSize-8:]), nil
}

// stringAt resolves the dynamic string whose offset sits in head word i.
func stringAt(raw []byte, i int) (string, error) {
	offset, err := wordUint(raw, i)
	if err != nil {
		return "", err
	}
	if offset+wordSize > uint64(len(raw)) {
		return "", fmt.Errorf("string offset %d out of range", offset)
	}
	length := binary.BigEndian.Uint64(raw[offset+wordSize-8 : offset+wordSize])
	start := offset + wordSize
	if start+length > uint64(len(raw)) {
		return "", fmt.Errorf("string data at %d out of range", offset)
	}
	return string(raw[start : start+length]), nil
}
