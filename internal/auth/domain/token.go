package domain

import "time"

// TokenPair is what the auth endpoints return: a short-lived access token
// plus the rotating refresh token that rides in an HTTP-only cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
}

// RefreshStatus is the lifecycle state of a stored refresh token record.
//
// ISSUED -> (rotate) -> ROTATED, pointing at the new link.
// ISSUED|ROTATED -> (revoke) -> REVOKED, terminal.
// A ROTATED or REVOKED record never validates again; presenting a ROTATED
// token is treated as theft and revokes the whole chain.
type RefreshStatus string

const (
	RefreshActive  RefreshStatus = "active"
	RefreshRotated RefreshStatus = "rotated"
	RefreshRevoked RefreshStatus = "revoked"
)

// RefreshTokenRecord is the durable record of one refresh token issuance.
// ChainID stays stable across the rotations that started from one login;
// TokenID changes on every rotation.
type RefreshTokenRecord struct {
	TokenID   string // jti of the refresh JWT; 128 bits random, base64url
	SubjectID int64
	ChainID   string // ULID, shared by every link of one login's chain
	IssuedAt  time.Time
	ExpiresAt time.Time
	RotatedTo string // token id of the successor link, empty while active
	Revoked   bool
	UpdatedAt time.Time
}

// Status derives the lifecycle state from the record's fields. Revocation
// wins over rotation so a cascade-revoked link reads as revoked.
func (r RefreshTokenRecord) Status() RefreshStatus {
	switch {
	case r.Revoked:
		return RefreshRevoked
	case r.RotatedTo != "":
		return RefreshRotated
	default:
		return RefreshActive
	}
}
