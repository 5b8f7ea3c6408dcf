package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rozgar/job-board/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	fs := NewFileStorage(dir)
	assert.Equal(t, filepath.Join(dir, "rozgar_user.json"), fs.Path())

	_, err := fs.Load()
	assert.Equal(t, ErrNoSession, err)
	require.NoError(t, fs.Clear())

	sess := Session{User: user.User{ID: "u1", Email: "asha@example.com", IsVerified: true}, Token: "tk"}
	require.NoError(t, fs.Save(sess))
	info, err := os.Stat(fs.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got.User.Email)
	assert.Equal(t, "tk", got.Token)

	require.NoError(t, fs.Clear())
	_, err = fs.Load()
	assert.Equal(t, ErrNoSession, err)
}

func TestFileStorageCorrupt(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	for _, content := range []string{"{oops", `{"token":"tk"}`} {
		require.NoError(t, os.WriteFile(fs.Path(), []byte(content), 0o600))
		_, err := fs.Load()
		assert.Equal(t, ErrCorruptSession, err, content)
	}
}
