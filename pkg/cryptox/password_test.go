package cryptox_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trackforge/trackforge/pkg/cryptox"
)

func TestMain(m *testing.M) {
	// Pin the pepper to a temp location so tests never touch a real one.
	dir, err := filepath.Abs("testdata")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	m.Run()
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := cryptox.HashPassword("secret123")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, cryptox.VerifyPassword("secret123", hash))
	require.ErrorIs(t, cryptox.VerifyPassword("wrong", hash), cryptox.ErrPasswordMismatch)
}

func TestHashesAreSalted(t *testing.T) {
	a, err := cryptox.HashPassword("secret123")
	require.NoError(t, err)
	b, err := cryptox.HashPassword("secret123")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestConcurrentHashesShareOnePepper(t *testing.T) {
	// Racing first-use hashes must all see the same lazily loaded pepper;
	// if two loads ever disagreed, a hash minted by one goroutine would
	// never verify again.
	const n = 8
	hashes := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hashes[i], errs[i] = cryptox.HashPassword("secret123")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NoError(t, cryptox.VerifyPassword("secret123", hashes[i]))
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	require.Error(t, cryptox.VerifyPassword("secret123", "not-a-hash"))
	require.Error(t, cryptox.VerifyPassword("secret123", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$BBBB"))
}
