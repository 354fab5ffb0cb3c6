package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// EventScope grants read access to the invoice event feed.
	EventScope = "invoices.events"
	// EventTokenTTL is the lifetime of an event feed token.
	EventTokenTTL = 15 * time.Minute

	devSigningKey = "invoiceapi-dev-signing-key"
)

var ErrInvalidScope = errors.New("token scope does not grant event access")

type EventClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// SigningKey returns the configured secret, or a fixed development key when
// none is set. Production startup refuses an empty JWT_SECRET.
func SigningKey(secret string) []byte {
	if secret == "" {
		return []byte(devSigningKey)
	}
	return []byte(secret)
}

// IssueEventToken signs an HS256 token for subject valid for EventTokenTTL.
func IssueEventToken(key []byte, subject string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(EventTokenTTL)
	claims := EventClaims{
		Scope: EventScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseEventToken verifies signature, expiry and scope.
func ParseEventToken(key []byte, tokenString string) (*EventClaims, error) {
	claims := &EventClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Scope != EventScope {
		return nil, ErrInvalidScope
	}
	return claims, nil
}
