package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims reads sub and exp from an access token without verifying its
// signature. The values are used only for local expiry bookkeeping.
func tokenClaims(token string) (subject string, expiresAt int64, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", 0, fmt.Errorf("parse access token: %w", err)
	}

	subject, _ = claims.GetSubject()
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", 0, fmt.Errorf("parse access token exp: %w", err)
	}
	if exp != nil {
		expiresAt = exp.Unix()
	}
	return subject, expiresAt, nil
}
