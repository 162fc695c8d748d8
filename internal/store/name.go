package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gb-go/internal/gb"
)

// NameFileName holds the backup name inside the state directory.
const NameFileName = "backup_name.txt"

// FileNameStore keeps the backup name as the raw content of a text file.
type FileNameStore struct {
	stateDir string
}

// NewFileNameStore creates a name store rooted at stateDir.
func NewFileNameStore(stateDir string) *FileNameStore {
	return &FileNameStore{stateDir: stateDir}
}

// Path returns the location of the name file.
func (s *FileNameStore) Path() string {
	return filepath.Join(s.stateDir, NameFileName)
}

// SetName replaces the stored name.
func (s *FileNameStore) SetName(name string) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return writeAtomic(s.Path(), func(w io.Writer) error {
		_, err := io.WriteString(w, name)
		return err
	})
}

// Name returns the stored name, or gb.DefaultBackupName when the file is
// missing or blank.
func (s *FileNameStore) Name() (string, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gb.DefaultBackupName, nil
		}
		return "", err
	}
	name := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(name) == "" {
		return gb.DefaultBackupName, nil
	}
	return name, nil
}

// Compile-time check that FileNameStore implements gb.NameStore.
var _ gb.NameStore = (*FileNameStore)(nil)
