package tokenx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trackforge/trackforge/pkg/tokenx"
)

func newTestCodec(t *testing.T) *tokenx.Codec {
	t.Helper()
	c, err := tokenx.NewCodec([]byte("access-secret-for-tests"), []byte("refresh-secret-for-tests"))
	require.NoError(t, err)
	return c
}

func TestNewCodecValidation(t *testing.T) {
	t.Parallel()

	_, err := tokenx.NewCodec(nil, []byte("r"))
	require.Error(t, err)

	_, err = tokenx.NewCodec([]byte("same"), []byte("same"))
	require.Error(t, err)
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)
	now := time.Now().UTC()

	for _, kind := range []tokenx.Kind{tokenx.KindAccess, tokenx.KindRefresh} {
		t.Run(string(kind), func(t *testing.T) {
			raw, err := c.Issue(kind, 42, "root@example.com", "ADMIN", "01HTESTTOKENID", time.Minute, now)
			require.NoError(t, err)

			claims, err := c.Decode(kind, raw)
			require.NoError(t, err)

			sub, err := claims.SubjectID()
			require.NoError(t, err)
			require.Equal(t, int64(42), sub)
			require.Equal(t, "ADMIN", claims.Role)
			require.Equal(t, kind, claims.Kind)
			require.Equal(t, "01HTESTTOKENID", claims.TokenID())
		})
	}
}

func TestDecodeExpired(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	issued := time.Now().UTC().Add(-2 * time.Minute)
	raw, err := c.Issue(tokenx.KindAccess, 1, "alice@example.com", "COLLABORATOR", "jti-1", time.Minute, issued)
	require.NoError(t, err)

	_, err = c.Decode(tokenx.KindAccess, raw)
	require.ErrorIs(t, err, tokenx.ErrExpired)
}

func TestKindSecretsAreIndependent(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)
	now := time.Now().UTC()

	refresh, err := c.Issue(tokenx.KindRefresh, 1, "alice@example.com", "COLLABORATOR", "jti-2", time.Hour, now)
	require.NoError(t, err)

	// A refresh token presented as an access token fails on signature, not
	// on the kind claim: the decode never gets that far.
	_, err = c.Decode(tokenx.KindAccess, refresh)
	require.ErrorIs(t, err, tokenx.ErrSignatureInvalid)
}

func TestDecodeWrongKindClaim(t *testing.T) {
	t.Parallel()

	// Two codecs sharing the access secret: a token minted as "refresh" by
	// the other codec carries kind=refresh but verifies under our access
	// secret. The payload check has to catch it.
	a, err := tokenx.NewCodec([]byte("shared-secret"), []byte("refresh-a"))
	require.NoError(t, err)
	b, err := tokenx.NewCodec([]byte("other-access"), []byte("shared-secret"))
	require.NoError(t, err)

	raw, err := b.Issue(tokenx.KindRefresh, 1, "root@example.com", "ADMIN", "jti-3", time.Hour, time.Now().UTC())
	require.NoError(t, err)

	_, err = a.Decode(tokenx.KindAccess, raw)
	require.ErrorIs(t, err, tokenx.ErrWrongKind)
}

func TestDecodeTampered(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.Issue(tokenx.KindAccess, 7, "bob@example.com", "ENABLER", "jti-4", time.Minute, time.Now().UTC())
	require.NoError(t, err)

	_, err = c.Decode(tokenx.KindAccess, raw+"x")
	require.Error(t, err)

	_, err = c.Decode(tokenx.KindAccess, "definitely.not.a-jwt")
	require.ErrorIs(t, err, tokenx.ErrMalformed)
}
