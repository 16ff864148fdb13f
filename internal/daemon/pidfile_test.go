package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_CreateAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), PIDFileName)
	p := NewPIDFile(path)
	assert.Equal(t, path, p.Path())

	require.NoError(t, p.Create())

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, p.Release())
	assert.NoFileExists(t, path)

	// releasing twice is a no-op
	assert.NoError(t, p.Release())
}

func TestPIDFile_SecondCreateIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), PIDFileName)

	first := NewPIDFile(path)
	require.NoError(t, first.Create())
	defer first.Release()

	// flock locks belong to the open file description, so a second open in
	// the same process conflicts too
	second := NewPIDFile(path)
	assert.ErrorIs(t, second.Create(), ErrPIDFileLocked)
}

func TestPIDFile_OverwritesStaleContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), PIDFileName)
	require.NoError(t, os.WriteFile(path, []byte("123456789012\n"), 0600))

	p := NewPIDFile(path)
	require.NoError(t, p.Create())
	defer p.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))
}

func TestPIDFile_CreateInMissingDir(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "missing", PIDFileName))
	assert.Error(t, p.Create())
}

func TestIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), PIDFileName)
	assert.False(t, IsLocked(path), "missing file")

	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0600))
	assert.False(t, IsLocked(path), "unlocked file")

	p := NewPIDFile(path)
	require.NoError(t, p.Create())
	assert.True(t, IsLocked(path))

	require.NoError(t, p.Release())
	assert.False(t, IsLocked(path))
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"plain", "1234\n", 1234, false},
		{"whitespace", "  42  \n", 42, false},
		{"garbage", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			pid, err := ReadPID(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pid)
		})
	}

	_, err := ReadPID(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestProcessExists(t *testing.T) {
	assert.True(t, ProcessExists(os.Getpid()))
	assert.False(t, ProcessExists(999999999))
	assert.False(t, ProcessExists(0))
	assert.False(t, ProcessExists(-1))
}
