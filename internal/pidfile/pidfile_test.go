package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run", "sttd.pid")
	require.NoError(t, Write(path))

	pid, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)
}

func TestWriteFailsWhenOwnerAlive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sttd.pid")
	// Our own PID is always alive.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644))

	err := Write(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestWriteReplacesStaleFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sttd.pid")
	// PID below any real process id, guaranteed dead.
	require.NoError(t, os.WriteFile(path, []byte("-1\n"), 0o644))

	require.NoError(t, Write(path))

	pid, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)
}

func TestWriteReplacesGarbageFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sttd.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))

	require.NoError(t, Write(path))
}

func TestReadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sttd.pid")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "invalid pid file"))
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	t.Parallel()

	require.NoError(t, Remove(filepath.Join(t.TempDir(), "absent.pid")))
}
