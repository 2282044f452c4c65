package atomicwrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFile_ReplacesAndSetsPerm(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "token")

	require.NoError(t, WriteFile(p, []byte("first"), 0o600))
	require.NoError(t, WriteFile(p, []byte("second"), 0o600))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "second", string(b))

	st, err := os.Stat(p)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	// sin temporales colgando
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteFile_MissingDir(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "nope", "token"), []byte("x"), 0o600)
	require.Error(t, err)
}
