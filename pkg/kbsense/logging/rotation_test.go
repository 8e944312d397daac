package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRotation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    string
		want    int64
		wantErr bool
	}{
		{name: "empty uses default", size: "", want: DefaultMaxSize},
		{name: "decimal megabytes", size: "10MB", want: 10 * 1000 * 1000},
		{name: "binary kibibytes", size: "512KiB", want: 512 * 1024},
		{name: "plain bytes", size: "2048", want: 2048},
		{name: "invalid", size: "ten megs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := ParseRotation(tt.size, 3)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.MaxSize)
			assert.Equal(t, 3, cfg.MaxBackups)
		})
	}
}

func TestNewRotatingWriter_CreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "kbsense.log")
	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)
	defer w.Close()

	assert.FileExists(t, path)
	assert.Equal(t, int64(DefaultMaxSize), w.cfg.MaxSize)
}

func TestRotatingWriter_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kbsense.log")
	w, err := NewRotatingWriter(path, DefaultRotationConfig())
	require.NoError(t, err)

	n, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	_, err = w.Write([]byte("after close"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kbsense.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	w, err := NewRotatingWriter(path, DefaultRotationConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(len("existing\n")), w.size)

	_, err = w.Write([]byte("appended\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nappended\n", string(data))
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "kbsense.log")
	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 32, MaxBackups: 2})
	require.NoError(t, err)

	line := []byte(strings.Repeat("x", 20) + "\n")
	for i := 0; i < 6; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	// The active file never exceeds one line past the limit.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, line, data)

	rotated := w.rotatedFiles()
	assert.NotEmpty(t, rotated)
	assert.LessOrEqual(t, len(rotated), 2)
	for _, name := range rotated {
		assert.True(t, strings.HasPrefix(filepath.Base(name), "kbsense."))
		assert.True(t, strings.HasSuffix(name, ".log"))
	}
}

func TestRotatingWriter_OversizedFirstWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kbsense.log")
	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 4})
	require.NoError(t, err)
	defer w.Close()

	// An empty file accepts a write larger than MaxSize without rotating.
	_, err = w.Write([]byte("larger than four bytes"))
	require.NoError(t, err)
	assert.Empty(t, w.rotatedFiles())
}

func TestRotatingWriter_CleanupKeepsNewest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{
		"kbsense.2024-01-01-000000.000.log",
		"kbsense.2024-01-02-000000.000.log",
		"kbsense.2024-01-03-000000.000.log",
		"other.2024-01-01-000000.000.log",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644))
	}

	w, err := NewRotatingWriter(filepath.Join(dir, "kbsense.log"), RotationConfig{MaxBackups: 1})
	require.NoError(t, err)
	defer w.Close()

	assert.NoFileExists(t, filepath.Join(dir, "kbsense.2024-01-01-000000.000.log"))
	assert.NoFileExists(t, filepath.Join(dir, "kbsense.2024-01-02-000000.000.log"))
	assert.FileExists(t, filepath.Join(dir, "kbsense.2024-01-03-000000.000.log"))
	assert.FileExists(t, filepath.Join(dir, "other.2024-01-01-000000.000.log"))
}
