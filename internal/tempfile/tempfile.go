// Package tempfile stages upload bytes on local disk for the duration of
// one pipeline run. Every staged file is removed on every exit path; a
// file that is already gone is not an error.
package tempfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// File is a scoped handle to one staged temporary file.
type File struct {
	Path string
	log  *logrus.Entry
}

// Manager creates staged files in a fixed directory with collision-free
// names: a fresh random identifier plus the original extension.
type Manager struct {
	dir string
	log *logrus.Entry
}

// NewManager returns a Manager staging into dir, or the OS temp directory
// when dir is empty.
func NewManager(dir string, log *logrus.Entry) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Manager{dir: dir, log: log}
}

// Stage writes data to a fresh temporary file and returns its handle.
// The name hint contributes only its extension.
func (m *Manager) Stage(data []byte, nameHint string) (*File, error) {
	name := uuid.NewString() + filepath.Ext(nameHint)
	path := filepath.Join(m.dir, name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("stage temp file: %w", err)
	}
	return &File{Path: path, log: m.log}, nil
}

// Cleanup removes the staged file. It is idempotent: a second call, or a
// call after the file was removed elsewhere, does nothing.
func (f *File) Cleanup() {
	if f == nil || f.Path == "" {
		return
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		if f.log != nil {
			f.log.WithError(err).WithField("path", f.Path).Warn("failed to remove temp file")
		}
		return
	}
	f.Path = ""
}
