package cryptox_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trackforge/trackforge/pkg/cryptox"
)

func TestGenerateToken(t *testing.T) {
	a, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, a, 43) // 32 bytes base64url, no padding

	b, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	fp1 := cryptox.Fingerprint("some-token")
	fp2 := cryptox.Fingerprint("some-token")
	require.Equal(t, fp1, fp2)
	require.NotEqual(t, fp1, cryptox.Fingerprint("other-token"))
	require.Len(t, fp1, 43)
}
