package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/encoding/json"
)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// payloadClaims decodes the middle segment of a compact JWT. The signature is
// not verified: the backend does that, this only recovers identifiers.
func payloadClaims(token string) (jwt.MapClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil || claims == nil {
		return nil, false
	}
	return claims, true
}

// SubjectFromToken returns the "sub" claim of a compact JWT. Any malformed
// input yields ("", false); it never returns an error.
func SubjectFromToken(token string) (string, bool) {
	claims, ok := payloadClaims(token)
	if !ok {
		return "", false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// ExpiryFromToken returns the "exp" claim, if present.
func ExpiryFromToken(token string) (*time.Time, bool) {
	claims, ok := payloadClaims(token)
	if !ok {
		return nil, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, false
	}
	t := exp.Time
	return &t, true
}
