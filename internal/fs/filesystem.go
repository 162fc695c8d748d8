package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gb-go/internal/gb"
)

// LinkMode controls how LinkOrDuplicate places files.
type LinkMode string

const (
	// LinkModeAuto hard links and falls back to copying when linking fails.
	LinkModeAuto LinkMode = "auto"
	// LinkModeHardlink only hard links; a failed link is a failure.
	LinkModeHardlink LinkMode = "hardlink"
	// LinkModeCopy always copies.
	LinkModeCopy LinkMode = "copy"
)

// ParseLinkMode validates a configured link mode. Empty means auto.
func ParseLinkMode(s string) (LinkMode, error) {
	switch LinkMode(s) {
	case "", LinkModeAuto:
		return LinkModeAuto, nil
	case LinkModeHardlink, LinkModeCopy:
		return LinkMode(s), nil
	default:
		return "", fmt.Errorf("unknown link mode %q (want auto, hardlink or copy)", s)
	}
}

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	ignorePatterns []string
	linkMode       LinkMode
}

// NewOSFilesystemManager creates a filesystem manager that operates on the
// real filesystem. ignorePatterns are applied to every scan in addition to
// the defaults and the root's .gbignore.
func NewOSFilesystemManager(ignorePatterns []string, linkMode LinkMode) *OSFilesystemManager {
	if linkMode == "" {
		linkMode = LinkModeAuto
	}
	return &OSFilesystemManager{
		ignorePatterns: ignorePatterns,
		linkMode:       linkMode,
	}
}

// EnsureDir creates path and any missing parents.
func (m *OSFilesystemManager) EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Exists reports whether path exists. Symlinks are not followed.
func (m *OSFilesystemManager) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteFile atomically replaces path with data via a temp file and rename.
func (m *OSFilesystemManager) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Create creates or truncates path for writing, creating parents as needed.
func (m *OSFilesystemManager) Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	return os.Create(path)
}

// Compile-time check that OSFilesystemManager implements gb.FilesystemManager.
var _ gb.FilesystemManager = (*OSFilesystemManager)(nil)
