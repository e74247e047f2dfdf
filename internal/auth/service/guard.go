package service

import (
	"context"
	"errors"
	"sync"

	"github.com/trackforge/trackforge/internal/auth/blacklist"
	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/tokencache"
	"github.com/trackforge/trackforge/pkg/cryptox"
	"github.com/trackforge/trackforge/pkg/tokenx"
)

// Policy describes who may call one named operation. The zero value means
// any authenticated principal, no role restriction.
type Policy struct {
	// Public operations skip authentication entirely when no bearer token
	// is presented. A presented token is still verified.
	Public bool

	// Roles allowed to call the operation. Empty means any role.
	Roles []domain.Role
}

// Guard authenticates bearer tokens and enforces per-operation role
// policies. Verification order is fixed: cache, codec, blacklist. The
// blacklist is consulted on the cache-hit path too, so a cached entry can
// never resurrect a revoked token.
type Guard struct {
	Codec     *tokenx.Codec
	Blacklist blacklist.Blacklist
	Cache     *tokencache.Cache

	mu       sync.RWMutex
	policies map[string]Policy
}

func NewGuard(codec *tokenx.Codec, bl blacklist.Blacklist, cache *tokencache.Cache) *Guard {
	return &Guard{
		Codec:     codec,
		Blacklist: bl,
		Cache:     cache,
		policies:  make(map[string]Policy),
	}
}

// RegisterOperation installs the policy for a named operation. Typically
// called once at wiring time, before any requests flow.
func (g *Guard) RegisterOperation(name string, p Policy) {
	g.mu.Lock()
	g.policies[name] = p
	g.mu.Unlock()
}

// policyFor returns the registered policy. Unregistered operations default
// to authenticated-any-role, so forgetting to register one fails closed.
func (g *Guard) policyFor(name string) Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policies[name]
}

// Authorize verifies the bearer token and checks it against the operation's
// policy. On success it returns the claims-backed principal plus the claims
// themselves (logout needs the token id and remaining validity).
func (g *Guard) Authorize(ctx context.Context, operation, bearer string) (domain.Principal, tokenx.Claims, error) {
	policy := g.policyFor(operation)

	if bearer == "" {
		if policy.Public {
			return domain.Principal{}, tokenx.Claims{}, nil
		}
		return domain.Principal{}, tokenx.Claims{}, ErrUnauthorized
	}

	fingerprint := cryptox.Fingerprint(bearer)

	claims, hit := g.Cache.Get(fingerprint)
	if !hit {
		var err error
		claims, err = g.Codec.Decode(tokenx.KindAccess, bearer)
		if err != nil {
			if errors.Is(err, tokenx.ErrExpired) {
				return domain.Principal{}, tokenx.Claims{}, ErrTokenExpired
			}
			return domain.Principal{}, tokenx.Claims{}, ErrUnauthorized
		}
	}

	// Hit or miss, the blacklist has the last word. An error here is
	// surfaced as retryable rather than guessed either way.
	revoked, err := g.Blacklist.Contains(ctx, claims.TokenID())
	if err != nil {
		return domain.Principal{}, tokenx.Claims{}, ErrUnavailable
	}
	if revoked {
		g.Cache.Invalidate(claims.TokenID())
		return domain.Principal{}, tokenx.Claims{}, ErrUnauthorized
	}

	if !hit {
		g.Cache.Put(fingerprint, claims)
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return domain.Principal{}, tokenx.Claims{}, ErrUnauthorized
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, tokenx.Claims{}, ErrUnauthorized
	}

	principal := domain.Principal{ID: subjectID, Email: claims.Email, Role: role}

	if len(policy.Roles) > 0 && !roleAllowed(role, policy.Roles) {
		return domain.Principal{}, tokenx.Claims{}, ErrForbidden
	}
	return principal, claims, nil
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
