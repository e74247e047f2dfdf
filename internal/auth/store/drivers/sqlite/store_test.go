package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/internal/auth/store/drivers/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") + "?_busy_timeout=5000"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func createUser(t *testing.T, st store.Store, email string) domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	u, err := st.Users().CreateUser(context.Background(), domain.User{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleCollaborator,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return u
}

func record(u domain.User, tokenID, chainID string, expires time.Time) domain.RefreshTokenRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.RefreshTokenRecord{
		TokenID:   tokenID,
		SubjectID: u.ID,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: expires,
		UpdatedAt: now,
	}
}

func TestUsersRoundTrip(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	count, err := st.Users().CountUsers(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	alice := createUser(t, st, "alice@example.com")
	require.Positive(t, alice.ID)

	// Lookup is case-insensitive; the stored form stays lowercased.
	got, err := st.Users().GetUserByEmail(ctx, "ALICE@Example.COM")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)

	// Duplicate email, any case, is a conflict.
	_, err = st.Users().CreateUser(ctx, domain.User{
		Email:        "Alice@example.com",
		PasswordHash: "x",
		Role:         domain.RoleCollaborator,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, st.Users().UpdateUserRole(ctx, alice.ID, domain.RoleEnabler))
	got, err = st.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleEnabler, got.Role)

	_, err = st.Users().GetUserByID(ctx, 9999)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRotateRefreshTokenOnce(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createUser(t, st, "alice@example.com")
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-1", "chain-1", now.Add(time.Hour))))

	require.NoError(t, st.RefreshTokens().RotateRefreshToken(ctx, "tok-1", "tok-2", now))

	// Second rotation of the same id loses.
	err := st.RefreshTokens().RotateRefreshToken(ctx, "tok-1", "tok-3", now)
	require.ErrorIs(t, err, store.ErrAlreadyRotated)

	rec, err := st.RefreshTokens().GetRefreshToken(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, domain.RefreshRotated, rec.Status())
	require.Equal(t, "tok-2", rec.RotatedTo)

	// Unknown ids are not conflated with conflicts.
	err = st.RefreshTokens().RotateRefreshToken(ctx, "tok-missing", "tok-4", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokeChainCascades(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createUser(t, st, "alice@example.com")
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-1", "chain-1", now.Add(time.Hour))))
	require.NoError(t, st.RefreshTokens().RotateRefreshToken(ctx, "tok-1", "tok-2", now))
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-2", "chain-1", now.Add(time.Hour))))

	recs, err := st.RefreshTokens().RevokeChain(ctx, "chain-1", now)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		require.Equal(t, domain.RefreshRevoked, rec.Status())
	}

	// A revoked link can never rotate, and revocation wins over rotation
	// in the error it reports.
	err = st.RefreshTokens().RotateRefreshToken(ctx, "tok-2", "tok-3", now)
	require.ErrorIs(t, err, store.ErrRevoked)

	// Revoking again is idempotent.
	_, err = st.RefreshTokens().RevokeChain(ctx, "chain-1", now)
	require.NoError(t, err)
}

func TestListActiveChains(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createUser(t, st, "alice@example.com")

	// chain-1: active. chain-2: revoked. chain-3: expired.
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-1", "chain-1", now.Add(time.Hour))))
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-2", "chain-2", now.Add(time.Hour))))
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-3", "chain-3", now.Add(-time.Minute))))

	_, err := st.RefreshTokens().RevokeChain(ctx, "chain-2", now)
	require.NoError(t, err)

	chains, err := st.RefreshTokens().ListActiveChains(ctx, alice.ID, now)
	require.NoError(t, err)
	require.Equal(t, []string{"chain-1"}, chains)
}

func TestDeleteExpiredRefreshTokens(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createUser(t, st, "alice@example.com")
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-live", "chain-1", now.Add(time.Hour))))
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx,
		record(alice, "tok-dead", "chain-2", now.Add(-time.Minute))))

	require.NoError(t, st.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now))

	_, err := st.RefreshTokens().GetRefreshToken(ctx, "tok-live")
	require.NoError(t, err)
	_, err = st.RefreshTokens().GetRefreshToken(ctx, "tok-dead")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().CreateUser(ctx, domain.User{
			Email:        "ghost@example.com",
			PasswordHash: "x",
			Role:         domain.RoleCollaborator,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Users().GetUserByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
