// Package service holds the auth subsystem's business logic: credential
// verification, token issuance and rotation, and the request guard. The
// HTTP layer is a thin shell around these services.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/trackforge/trackforge/internal/auth/blacklist"
	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/internal/auth/tokencache"
	"github.com/trackforge/trackforge/pkg/cryptox"
	"github.com/trackforge/trackforge/pkg/idx"
	"github.com/trackforge/trackforge/pkg/slogx"
	"github.com/trackforge/trackforge/pkg/tokenx"
)

// MinSecretLength is the floor for signup passwords.
const MinSecretLength = 6

// AuthService issues, rotates, and revokes session tokens.
type AuthService struct {
	Store      store.Store
	Codec      *tokenx.Codec
	Blacklist  blacklist.Blacklist
	Cache      *tokencache.Cache
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return tokenx.DefaultAccessTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return tokenx.DefaultRefreshTTL
}

// SignUp registers a new account. The very first account becomes ADMIN so a
// fresh deployment has someone who can grant roles; everyone after that
// starts as COLLABORATOR.
func (s *AuthService) SignUp(ctx context.Context, email, secret string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if len(secret) < MinSecretLength {
		return domain.User{}, ErrWeakSecret
	}

	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now()
	var created domain.User

	// Count and create share a transaction so two racing first signups
	// cannot both become ADMIN.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		count, err := tx.Users().CountUsers(ctx)
		if err != nil {
			return err
		}

		role := domain.RoleCollaborator
		if count == 0 {
			role = domain.RoleAdmin
		}

		created, err = tx.Users().CreateUser(ctx, domain.User{
			Email:        email,
			PasswordHash: hash,
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, mapInfra(err)
	}

	l.Info("user registered",
		slog.Int64("user_id", created.ID),
		slog.String("role", string(created.Role)),
	)
	return created, nil
}

// SignIn verifies credentials and starts a new rotation chain. The refresh
// token rides out through the transport; the access token is returned in
// the pair.
func (s *AuthService) SignIn(ctx context.Context, email, secret string, transport SessionTransport) (domain.Principal, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now()

	user, err := s.verifyCredentials(ctx, email, secret)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}

	pair, rec, err := s.mintPair(user, idx.New().String(), now)
	if err != nil {
		return domain.Principal{}, domain.TokenPair{}, err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return domain.Principal{}, domain.TokenPair{}, mapInfra(err)
	}

	transport.SetRefreshCookie(pair.RefreshToken, s.refreshTTL())
	l.Info("signed in",
		slog.Int64("user_id", user.ID),
		slog.String("chain_id", rec.ChainID),
	)
	return user.Principal(), pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The old token is
// rotated out atomically: of N concurrent exchanges of the same token
// exactly one wins, and a replay of an already-exchanged token revokes the
// entire chain on the assumption that the token leaked.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, transport SessionTransport) (domain.Principal, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now()

	claims, err := s.Codec.Decode(tokenx.KindRefresh, rawRefresh)
	if err != nil {
		transport.ClearRefreshCookie()
		if errors.Is(err, tokenx.ErrExpired) {
			return domain.Principal{}, domain.TokenPair{}, ErrTokenExpired
		}
		return domain.Principal{}, domain.TokenPair{}, ErrUnauthorized
	}
	subjectID, err := claims.SubjectID()
	if err != nil {
		transport.ClearRefreshCookie()
		return domain.Principal{}, domain.TokenPair{}, ErrUnauthorized
	}
	oldID := claims.TokenID()

	// Re-read the user so rotated tokens pick up role changes.
	user, err := s.Store.Users().GetUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			transport.ClearRefreshCookie()
			return domain.Principal{}, domain.TokenPair{}, ErrUnauthorized
		}
		return domain.Principal{}, domain.TokenPair{}, mapInfra(err)
	}

	var (
		pair        domain.TokenPair
		reusedChain string
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.RefreshTokens().GetRefreshToken(ctx, oldID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		p, newRec, err := s.mintPair(user, rec.ChainID, now)
		if err != nil {
			return err
		}

		if err := tx.RefreshTokens().RotateRefreshToken(ctx, oldID, newRec.TokenID, now); err != nil {
			if errors.Is(err, store.ErrAlreadyRotated) {
				reusedChain = rec.ChainID
			}
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, newRec); err != nil {
			return err
		}

		pair = p
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyRotated):
			// Replay of a spent token. Someone holds a token that was
			// already exchanged, so neither branch of the fork can be
			// trusted: kill the whole chain.
			l.Warn("refresh token reuse detected, revoking chain",
				slog.Int64("user_id", subjectID),
				slog.String("chain_id", reusedChain),
			)
			// The cascade must actually land before the caller is told the
			// chain is dead; a failed revocation is a retryable outage, not
			// a completed reuse response.
			if err := s.revokeChain(ctx, reusedChain, now); err != nil {
				return domain.Principal{}, domain.TokenPair{}, ErrUnavailable
			}
			transport.ClearRefreshCookie()
			return domain.Principal{}, domain.TokenPair{}, ErrTokenReused
		case errors.Is(err, store.ErrRevoked):
			transport.ClearRefreshCookie()
			return domain.Principal{}, domain.TokenPair{}, ErrTokenExpired
		case errors.Is(err, ErrUnauthorized):
			transport.ClearRefreshCookie()
			return domain.Principal{}, domain.TokenPair{}, ErrUnauthorized
		default:
			return domain.Principal{}, domain.TokenPair{}, mapInfra(err)
		}
	}

	// The spent token must never validate again, even before its natural
	// expiry. The store already refuses to rotate it twice; the blacklist
	// entry also stops it from being presented as a bearer.
	s.blacklistToken(ctx, oldID, claims.Remaining(now))

	transport.SetRefreshCookie(pair.RefreshToken, s.refreshTTL())
	return user.Principal(), pair, nil
}

// Logout revokes every active chain the subject has, across all devices,
// and kills the presented access token for the rest of its validity.
// Logging out with no active chains is a no-op, not an error.
func (s *AuthService) Logout(ctx context.Context, accessClaims tokenx.Claims, transport SessionTransport) error {
	l := slogx.FromContext(ctx)
	now := time.Now()

	subjectID, err := accessClaims.SubjectID()
	if err != nil {
		return ErrUnauthorized
	}

	chains, err := s.Store.RefreshTokens().ListActiveChains(ctx, subjectID, now)
	if err != nil {
		return mapInfra(err)
	}
	for _, chain := range chains {
		if err := s.revokeChain(ctx, chain, now); err != nil {
			return mapInfra(err)
		}
	}

	s.blacklistToken(ctx, accessClaims.TokenID(), accessClaims.Remaining(now))
	transport.ClearRefreshCookie()

	l.Info("logged out",
		slog.Int64("user_id", subjectID),
		slog.Int("chains_revoked", len(chains)),
	)
	return nil
}

// CurrentPrincipal loads the live principal for a subject id. Guards return
// the claims-backed view; this is the storage-backed one used by /me.
func (s *AuthService) CurrentPrincipal(ctx context.Context, subjectID int64) (domain.Principal, error) {
	user, err := s.Store.Users().GetUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, ErrUnauthorized
		}
		return domain.Principal{}, mapInfra(err)
	}
	return user.Principal(), nil
}

// verifyCredentials resolves email+secret to a user. Unknown email and
// wrong password collapse into the same error so callers cannot probe
// which addresses exist.
func (s *AuthService) verifyCredentials(ctx context.Context, email, secret string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || secret == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, mapInfra(err)
	}

	if err := cryptox.VerifyPassword(secret, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// mintPair signs a fresh access/refresh pair for one chain link and builds
// the storage record for the refresh half. Nothing is persisted here.
// Token ids are fully random; chain ids stay ULIDs because they are listed
// and scanned, where the time prefix helps.
func (s *AuthService) mintPair(u domain.User, chainID string, now time.Time) (domain.TokenPair, domain.RefreshTokenRecord, error) {
	accessID, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshTokenRecord{}, err
	}
	refreshID, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshTokenRecord{}, err
	}

	access, err := s.Codec.Issue(tokenx.KindAccess, u.ID, u.Email, string(u.Role), accessID, s.accessTTL(), now)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshTokenRecord{}, err
	}
	refresh, err := s.Codec.Issue(tokenx.KindRefresh, u.ID, u.Email, string(u.Role), refreshID, s.refreshTTL(), now)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshTokenRecord{}, err
	}

	rec := domain.RefreshTokenRecord{
		TokenID:   refreshID,
		SubjectID: u.ID,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL()),
		UpdatedAt: now,
	}
	pair := domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.accessTTL(),
	}
	return pair, rec, nil
}

// revokeChain marks every link of a chain revoked, then blacklists the ids
// that still have validity left and drops them from the verification cache.
func (s *AuthService) revokeChain(ctx context.Context, chainID string, now time.Time) error {
	recs, err := s.Store.RefreshTokens().RevokeChain(ctx, chainID, now)
	if err != nil {
		slogx.FromContext(ctx).Error("revoke chain failed",
			slog.String("chain_id", chainID),
			slog.String("error", err.Error()),
		)
		return err
	}
	for _, rec := range recs {
		if ttl := rec.ExpiresAt.Sub(now); ttl > 0 {
			s.blacklistToken(ctx, rec.TokenID, ttl)
		} else if s.Cache != nil {
			s.Cache.Invalidate(rec.TokenID)
		}
	}
	return nil
}

// blacklistToken adds one token id to the revocation set and invalidates
// its cache entry. A blacklist write failure is logged rather than
// propagated: the store records remain the durable source of truth, and
// failing the whole operation would leave the caller in a worse state.
func (s *AuthService) blacklistToken(ctx context.Context, tokenID string, ttl time.Duration) {
	if err := s.Blacklist.Add(ctx, tokenID, ttl); err != nil {
		slogx.FromContext(ctx).Warn("blacklist add failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}
	if s.Cache != nil {
		s.Cache.Invalidate(tokenID)
	}
}
