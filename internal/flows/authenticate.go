package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goAuthClient/identity"
)

// AuthenticateDeps captures credential exchange dependencies.
type AuthenticateDeps struct {
	SignIn func(ctx context.Context, email, password string) (*identity.Session, error)
}

// RunAuthenticate exchanges email and password for a session. Empty fields are
// rejected locally; provider failures come back as *CredentialError.
func RunAuthenticate(ctx context.Context, email, password string, deps AuthenticateDeps) (*identity.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, Fatal("authenticate", ErrMissingCredentials)
	}

	sess, err := deps.SignIn(ctx, email, password)
	if err != nil {
		return nil, Fatal("authenticate", newCredentialError(err))
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, Fatal("authenticate", newCredentialError(errors.New("no session returned by identity provider")))
	}
	return sess, nil
}
