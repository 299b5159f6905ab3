// Package receipt signs and verifies roll receipts: HS256 JWTs binding a
// stored roll's id, expression, display and seed so a player can prove a
// result came from the server.
package receipt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
)

// Issuer is the iss claim of every receipt.
const Issuer = "dicebox"

// minKeyLen is the shortest accepted HMAC key in bytes.
const minKeyLen = 32

// Claims are the verified contents of a receipt.
type Claims struct {
	RollID     string
	Expression string
	Display    string
	Seed       int64
	IssuedAt   time.Time
}

type receiptClaims struct {
	jwt.RegisteredClaims
	Expression string `json:"expr"`
	Display    string `json:"display"`
	Seed       int64  `json:"seed"`
}

// Signer issues and verifies receipts with one HMAC key.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner returns a signer for key. now defaults to time.Now.
func NewSigner(key []byte, now func() time.Time) (*Signer, error) {
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("receipt key must be at least %d bytes", minKeyLen)
	}
	if now == nil {
		now = time.Now
	}
	return &Signer{key: key, now: now}, nil
}

// DecodeKey parses a base64 key from configuration.
func DecodeKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("empty receipt key")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, fmt.Errorf("decode receipt key: %w", err)
	}
	return decoded, nil
}

// Sign returns the receipt token for claims. IssuedAt is set from the clock.
func (s *Signer) Sign(claims Claims) (string, error) {
	if strings.TrimSpace(claims.RollID) == "" {
		return "", errors.New("receipt roll id is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, receiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Subject:  claims.RollID,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
		Expression: claims.Expression,
		Display:    claims.Display,
		Seed:       claims.Seed,
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign receipt: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and issuer and returns its claims.
func (s *Signer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipt is required")
	}

	var parsed receiptClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if parsed.Subject == "" {
		return Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipt subject is required")
	}

	claims := Claims{
		RollID:     parsed.Subject,
		Expression: parsed.Expression,
		Display:    parsed.Display,
		Seed:       parsed.Seed,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeReceiptInvalid, "receipt signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.Wrap(apperrors.CodeReceiptInvalid, "receipt issuer is invalid", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Wrap(apperrors.CodeReceiptInvalid, "receipt alg is invalid", err)
	default:
		return apperrors.Wrap(apperrors.CodeReceiptInvalid, "receipt is invalid", err)
	}
}
