package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenValid decodes the token's expiry claim without verifying the signature
// (the backend owns verification) and reports whether it is still in the
// future. Malformed tokens and tokens without an expiry count as invalid.
func tokenValid(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(now)
}
