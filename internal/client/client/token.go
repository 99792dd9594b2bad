package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenNearExpiry reports whether the access token expires within the given
// window. The token is parsed without signature verification: the client
// only reads the exp claim to decide when to refresh, the server still
// verifies every request. Tokens that cannot be parsed or carry no expiry
// are treated as expiring, so the refresh path handles them.
func tokenNearExpiry(token string, within time.Duration) bool {
	if token == "" {
		return true
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) < within
}
