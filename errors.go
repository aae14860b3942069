package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/internal/limiters"
	"github.com/MrEthical07/goAuthClient/profile"
	"github.com/MrEthical07/goAuthClient/verification"
)

var (
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = flows.ErrMissingCredentials
	// ErrMissingPhone is returned when a code operation has no phone number.
	ErrMissingPhone = flows.ErrMissingPhone
	// ErrMissingCode is returned when an empty verification code is submitted.
	ErrMissingCode = flows.ErrMissingCode
	// ErrInvalidPhone is returned by SignUp for a phone number that is not E.164.
	ErrInvalidPhone = flows.ErrInvalidPhone
	// ErrNoSession means a bearer-authorized call was attempted without a live
	// session. The login attempt is abandoned; the user must sign in again.
	ErrNoSession = verification.ErrNoSession
	// ErrSessionMissing is returned by identity calls that need a current session.
	ErrSessionMissing = identity.ErrSessionMissing
	// ErrProfileDuplicate is returned by profile inserts on an existing id.
	ErrProfileDuplicate = profile.ErrDuplicate
	// ErrCodeSendRateLimited is returned when a phone exhausted its send budget.
	ErrCodeSendRateLimited = limiters.ErrCodeSendRateLimited
	// ErrCodeSendUnavailable is returned when the send throttle backend is down.
	ErrCodeSendUnavailable = limiters.ErrCodeSendUnavailable
	// ErrInvalidTransition is returned by LoginFlow calls the current state does
	// not accept, including calls made while another call is in flight.
	ErrInvalidTransition = errors.New("operation not allowed in current login state")
	// ErrEngineNotReady is returned by methods of a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

type (
	// CredentialError carries the identity provider's failure message verbatim.
	CredentialError = flows.CredentialError
	// ProfileStoreError is a failed profile read or write. A missing row is
	// not an error.
	ProfileStoreError = flows.ProfileStoreError
	// ChannelError is a failed call to the verification service.
	ChannelError = verification.ChannelError
	// CallbackParseError reports a malformed callback fragment. It is recorded
	// but never ends a callback run by itself.
	CallbackParseError = flows.CallbackParseError
	// FlowError tags an error with the failing step and its severity.
	FlowError = flows.FlowError
	// ProviderError is an error response of the identity provider.
	ProviderError = identity.Error
)

// IsRecoverable reports whether err was tolerated by a flow and only logged.
func IsRecoverable(err error) bool {
	return flows.IsRecoverable(err)
}

// ErrorOp returns the flow step that produced err, or "".
func ErrorOp(err error) string {
	return flows.OpOf(err)
}
