// Package tokenx issues and verifies the signed, time-bounded tokens used
// by the auth subsystem. Access and refresh tokens are HS256 JWTs signed
// with independent secrets.
package tokenx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed        = errors.New("tokenx: malformed token")
	ErrSignatureInvalid = errors.New("tokenx: invalid signature")
	ErrExpired          = errors.New("tokenx: token expired")
	ErrNotYetValid      = errors.New("tokenx: token not yet valid")
	ErrWrongKind        = errors.New("tokenx: wrong token kind")
	ErrInvalidClaim     = errors.New("tokenx: invalid claims")
)

// Codec signs and verifies token strings. It is stateless and safe for
// concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewCodec builds a codec from the two signing secrets. Both are required
// and must differ; sharing a secret would collapse the kind separation the
// codec exists to provide.
func NewCodec(accessSecret, refreshSecret []byte) (*Codec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("tokenx: both signing secrets are required")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("tokenx: access and refresh secrets must differ")
	}
	return &Codec{accessSecret: accessSecret, refreshSecret: refreshSecret}, nil
}

// Issue signs a token of the given kind.
func (c *Codec) Issue(kind Kind, subjectID int64, email, role, tokenID string, ttl time.Duration, now time.Time) (string, error) {
	secret, err := c.secretFor(kind)
	if err != nil {
		return "", err
	}

	claims := NewClaims(kind, subjectID, email, role, tokenID, ttl, now)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("tokenx: sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Decode verifies signature and validity window before returning any claim
// field. A token signed with the other kind's secret fails signature
// verification; a token whose payload claims the other kind fails with
// ErrWrongKind.
func (c *Codec) Decode(kind Kind, raw string) (Claims, error) {
	secret, err := c.secretFor(kind)
	if err != nil {
		return Claims{}, err
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if claims.Kind != kind {
		return Claims{}, ErrWrongKind
	}
	if claims.ID == "" || claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}
	return claims, nil
}

func (c *Codec) secretFor(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess:
		return c.accessSecret, nil
	case KindRefresh:
		return c.refreshSecret, nil
	default:
		return nil, fmt.Errorf("tokenx: unknown token kind %q", kind)
	}
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrInvalidClaim
	}
}
