package tempfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Stage(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)

	f, err := m.Stage([]byte("audio bytes"), "recording.mp3")
	require.NoError(t, err)
	defer f.Cleanup()

	assert.True(t, strings.HasSuffix(f.Path, ".mp3"))
	assert.Equal(t, dir, filepath.Dir(f.Path))

	content, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio bytes"), content)
}

func TestManager_Stage_UniqueNames(t *testing.T) {
	m := NewManager(t.TempDir(), nil)

	a, err := m.Stage([]byte("a"), "same.wav")
	require.NoError(t, err)
	defer a.Cleanup()

	b, err := m.Stage([]byte("b"), "same.wav")
	require.NoError(t, err)
	defer b.Cleanup()

	assert.NotEqual(t, a.Path, b.Path)
}

func TestFile_Cleanup_Idempotent(t *testing.T) {
	m := NewManager(t.TempDir(), nil)

	f, err := m.Stage([]byte("x"), "a.wav")
	require.NoError(t, err)

	path := f.Path
	f.Cleanup()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Second cleanup and cleanup after external removal must not panic or log errors
	f.Cleanup()

	g, err := m.Stage([]byte("y"), "b.wav")
	require.NoError(t, err)
	require.NoError(t, os.Remove(g.Path))
	g.Cleanup()
}

func TestFile_Cleanup_NilSafe(t *testing.T) {
	var f *File
	f.Cleanup()
}
