package tokenx

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens bound the damage of a leaked
// bearer string; the refresh TTL is the maximum lifetime of a login chain.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Kind distinguishes the two token flavours. Each kind is signed with its
// own secret so compromising one cannot forge the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the signed claim set for both token kinds.
type Claims struct {
	jwt.RegisteredClaims

	// Email and Role of the subject at issuance time.
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`

	// Kind is embedded in the payload as well as implied by the signing
	// secret, so a decoded token can be sanity-checked cheaply.
	Kind Kind `json:"kind"`
}

// NewClaims builds a claim set for one issuance. tokenID becomes the jti.
func NewClaims(kind Kind, subjectID int64, email, role, tokenID string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  role,
		Kind:  kind,
	}
}

// SubjectID parses the sub claim back into the numeric principal id.
func (c Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidClaim
	}
	return id, nil
}

// TokenID is the unique id (jti) of this issuance.
func (c Claims) TokenID() string { return c.ID }

// Remaining reports how much validity the token has left at now, floored
// at zero.
func (c Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
