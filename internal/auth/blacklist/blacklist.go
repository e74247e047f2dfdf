// Package blacklist tracks revoked token ids for the remainder of their
// natural validity. A token can be cryptographically valid yet
// administratively dead; this set is the final gate on every verification
// path. Entries may be purged once expired because the codec independently
// rejects expired tokens.
package blacklist

import (
	"context"
	"time"
)

// MinTTL floors entry lifetimes so a token revoked in the last instants of
// its validity cannot race the clock into a zero or negative TTL.
const MinTTL = 5 * time.Second

// Blacklist is the revocation set. Implementations must make writes
// visible to subsequent reads from other goroutines without a global lock.
type Blacklist interface {
	// Add revokes tokenID for ttl. The ttl should be the token's remaining
	// validity; implementations floor it at MinTTL.
	Add(ctx context.Context, tokenID string, ttl time.Duration) error

	// Contains reports whether tokenID is currently revoked.
	Contains(ctx context.Context, tokenID string) (bool, error)

	// PurgeExpired drops entries whose TTL has lapsed. Housekeeping only;
	// Contains already ignores lapsed entries.
	PurgeExpired(ctx context.Context) error
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}
