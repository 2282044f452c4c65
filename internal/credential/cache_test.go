package credential

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopush/internal/cryptort"
)

func copyFixture(t *testing.T, name, dir string) string {
	t.Helper()
	dst := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(dst, readFixture(t, name), 0o600))
	return dst
}

func TestFileCache_SharesParsedCredential(t *testing.T) {
	dir := t.TempDir()
	keyPath := copyFixture(t, "AuthKey_ABC123.p8", dir)
	p12Path := copyFixture(t, "identity.p12", dir)

	c := NewFileCache(NewStore(newRuntime(t)), time.Minute)

	k1, err := c.SigningKey(keyPath)
	require.NoError(t, err)
	k2, err := c.SigningKey(keyPath)
	require.NoError(t, err)
	require.Same(t, k1, k2)

	id1, err := c.TrustIdentity(p12Path, fixturePassphrase)
	require.NoError(t, err)
	id2, err := c.TrustIdentity(p12Path, fixturePassphrase)
	require.NoError(t, err)
	require.Same(t, id1, id2)
	require.Equal(t, 2, c.Len())

	c.Flush()
	require.Equal(t, 0, c.Len())
}

func TestFileCache_ReloadsReplacedFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := copyFixture(t, "AuthKey_ABC123.p8", dir)

	c := NewFileCache(NewStore(newRuntime(t)), time.Minute)
	k1, err := c.SigningKey(keyPath)
	require.NoError(t, err)

	// misma clave con un bloque extra: cambia tamaño y mtime
	b := append(readFixture(t, "AuthKey_ABC123.p8"), '\n')
	require.NoError(t, os.WriteFile(keyPath, b, 0o600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(keyPath, future, future))

	k2, err := c.SigningKey(keyPath)
	require.NoError(t, err)
	require.NotSame(t, k1, k2)
	require.True(t, k1.Public().Equal(k2.Public()))
}

func TestFileCache_ErrorsAreNotCached(t *testing.T) {
	dir := t.TempDir()
	p12Path := copyFixture(t, "identity.p12", dir)

	c := NewFileCache(NewStore(newRuntime(t)), time.Minute)
	_, err := c.TrustIdentity(p12Path, "wrong")
	require.ErrorIs(t, err, ErrCredentialLoad)
	require.Equal(t, 0, c.Len())

	id, err := c.TrustIdentity(p12Path, fixturePassphrase)
	require.NoError(t, err)
	require.NotNil(t, id)

	_, err = c.SigningKey(filepath.Join(dir, "missing.p8"))
	require.ErrorIs(t, err, ErrCredentialLoad)
}

func TestFileCache_ConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	keyPath := copyFixture(t, "AuthKey_ABC123.p8", dir)
	c := NewFileCache(NewStore(newRuntime(t)), time.Minute)

	const n = 32
	got := make([]*SigningKey, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := c.SigningKey(keyPath)
			if err == nil {
				got[i] = k
			}
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		require.NotNil(t, got[i])
		require.Same(t, got[0], got[i])
	}
}

func TestFileCache_RequiresRuntime(t *testing.T) {
	dir := t.TempDir()
	keyPath := copyFixture(t, "AuthKey_ABC123.p8", dir)

	rt := cryptort.New()
	c := NewFileCache(NewStore(rt), 0)
	_, err := c.SigningKey(keyPath)
	require.ErrorIs(t, err, cryptort.ErrRuntimeNotInitialized)
}
