package flows

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/verification"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingPhone       = errors.New("phone number is required")
	ErrMissingCode        = errors.New("verification code is required")
	ErrInvalidPhone       = errors.New("phone number must be in E.164 format, e.g. +14155550000")
	// ErrNoSession means there is no live session to act with; the user has to
	// sign in again.
	ErrNoSession = verification.ErrNoSession
)

// CredentialError is a failed credential exchange or registration. Message is
// the provider's text, unmodified.
type CredentialError struct {
	Message string
	Status  int
	Err     error
}

func newCredentialError(err error) *CredentialError {
	ce := &CredentialError{Message: err.Error(), Err: err}
	var perr *identity.Error
	if errors.As(err, &perr) {
		ce.Status = perr.Status
	}
	return ce
}

func (e *CredentialError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *CredentialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProfileStoreError is a failed profile read or write. A missing row is never
// reported as a ProfileStoreError.
type ProfileStoreError struct {
	Op  string
	Err error
}

func (e *ProfileStoreError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("profile %s: %v", e.Op, e.Err)
}

func (e *ProfileStoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CallbackParseError reports a callback URL whose fragment could not be fully
// decoded.
type CallbackParseError struct {
	Fragment string
	Err      error
}

func (e *CallbackParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("parse callback fragment: %v", e.Err)
}

func (e *CallbackParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
