package fslock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, lock.Release())
	// Releasing twice is harmless.
	require.NoError(t, lock.Release())
}

func TestRelease_Nil(t *testing.T) {
	t.Parallel()

	var lock *Lock
	assert.NoError(t, lock.Release())
}

func TestExclusive_OpenFile(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "lock")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, Exclusive(f))
	require.NoError(t, Unlock(f))
}
