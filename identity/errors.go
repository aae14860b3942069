package identity

import "errors"

var (
	// ErrSessionMissing is returned by calls that need a current session when none is stored.
	ErrSessionMissing = errors.New("auth session missing")
	// ErrMissingToken is returned when an empty access token is supplied.
	ErrMissingToken = errors.New("access token required")
)

// Error is a provider-reported failure. Message is carried verbatim from the
// provider response body.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return "identity provider error"
}

// providerErrorBody covers the error shapes GoTrue has used across versions.
type providerErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
}

func (b providerErrorBody) message() string {
	for _, m := range []string{b.ErrorDescription, b.Msg, b.Message, b.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (b providerErrorBody) code() string {
	if b.ErrorCode != "" {
		return b.ErrorCode
	}
	if s, ok := b.Code.(string); ok {
		return s
	}
	return b.Error
}
