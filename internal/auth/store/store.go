package store

import (
	"context"
	"errors"
	"time"

	"github.com/trackforge/trackforge/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAlreadyRotated is the anti-replay signal: the refresh token was
	// already exchanged once. Exactly one of any set of concurrent rotation
	// attempts on the same token id can avoid this error.
	ErrAlreadyRotated = errors.New("store: refresh token already rotated")

	// ErrRevoked reports a refresh token whose record (or whole chain) was
	// administratively revoked.
	ErrRevoked = errors.New("store: refresh token revoked")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// durability, memory for tests and dev) implement this. Sub-repositories
// keep concerns tidy and let transactional call sites reuse the same
// repo code.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. This is how multi-step operations that must
	// be atomic (refresh rotation in particular) are run.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos, plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail looks a user up case-insensitively; used during
	// credential verification.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and returns it with the assigned id.
	// A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateUserRole changes the role and bumps updated_at.
	UpdateUserRole(ctx context.Context, id int64, role domain.Role) error

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int64, error)
}

type RefreshTokens interface {
	// CreateRefreshToken records one refresh token issuance (fresh login
	// or rotation result).
	CreateRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) error

	// GetRefreshToken returns the record for a token id, ErrNotFound for
	// an unknown id.
	GetRefreshToken(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, error)

	// RotateRefreshToken atomically marks oldTokenID as rotated to
	// newTokenID. The update is conditional on the record still being
	// active, so of N concurrent calls with the same oldTokenID exactly
	// one succeeds; the rest see ErrAlreadyRotated (or ErrRevoked /
	// ErrNotFound depending on the record's state).
	RotateRefreshToken(ctx context.Context, oldTokenID, newTokenID string, now time.Time) error

	// RevokeChain marks every record sharing chainID as revoked and
	// returns the chain's records so callers can blacklist the ids that
	// still have validity left. Revoking an already-revoked chain is not
	// an error.
	RevokeChain(ctx context.Context, chainID string, now time.Time) ([]domain.RefreshTokenRecord, error)

	// ListActiveChains returns the distinct chain ids with at least one
	// active, unexpired link for a subject. Used by logout.
	ListActiveChains(ctx context.Context, subjectID int64, now time.Time) ([]string, error)

	// DeleteExpiredRefreshTokens is retention housekeeping; records past
	// expiry can never validate again regardless.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error
}
