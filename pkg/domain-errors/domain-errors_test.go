package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are core error primitives used at every trust boundary. Unit tests
// ensure invariants like "wrapped domain errors preserve original code" and
// "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "credential not found"}
		s.Equal("credential not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeWrongNetwork}
		s.Equal("wrong_network", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("connection refused")
		err := &Error{Code: CodeNoProvider, Message: "resolution failed", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeDuplicateCredential, Message: "subject S1"}
		err2 := &Error{Code: CodeDuplicateCredential, Message: "subject S2"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeUserDeclined}
		err2 := &Error{Code: CodeInsufficientFunds}
		s.False(err1.Is(err2))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves code of wrapped domain error", func() {
		inner := New(CodeWrongNetwork, "agent on chain 1")
		wrapped := Wrap(inner, CodeLedgerWriteFailed, "write aborted")
		s.True(HasCode(wrapped, CodeWrongNetwork))
		s.False(HasCode(wrapped, CodeLedgerWriteFailed))
	})

	s.Run("applies code to plain errors", func() {
		wrapped := Wrap(errors.New("boom"), CodeLedgerWriteFailed, "write aborted")
		s.True(HasCode(wrapped, CodeLedgerWriteFailed))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Run("extracts code from domain error", func() {
		s.Equal(CodeCancelled, CodeOf(New(CodeCancelled, "caller aborted")))
	})

	s.Run("defaults to internal for plain errors", func() {
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})

	s.Run("finds code through wrapping", func() {
		err := Wrap(New(CodeNoProvider, ""), CodeInternal, "resolution")
		s.Equal(CodeNoProvider, CodeOf(err))
	})
}
