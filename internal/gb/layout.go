package gb

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultStateDir holds the partition and backup name under the scan root.
	DefaultStateDir = ".file_info"
	// DefaultBackupDir is where `copy` materializes groups when no destination is given.
	DefaultBackupDir = ".backup_files"
)

// Layout locates gb's own files relative to a scan root.
// All paths are absolute.
type Layout struct {
	Root      string
	StateDir  string
	BackupDir string
}

// NewLayout builds a Layout. stateDir and backupDir may be relative to root
// or absolute. root must already be absolute.
func NewLayout(root, stateDir, backupDir string) Layout {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	if backupDir == "" {
		backupDir = DefaultBackupDir
	}
	return Layout{
		Root:      filepath.Clean(root),
		StateDir:  underRoot(root, stateDir),
		BackupDir: underRoot(root, backupDir),
	}
}

func underRoot(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// GroupDestination is the default materialization directory for a group.
func (l Layout) GroupDestination(number int) string {
	return filepath.Join(l.BackupDir, fmt.Sprintf("group_%d", number))
}

// ScanExcludes returns the state and backup directories as root-relative,
// slash-separated paths, omitting any that live outside the root.
func (l Layout) ScanExcludes() []string {
	var out []string
	for _, dir := range []string{l.StateDir, l.BackupDir} {
		rel, err := filepath.Rel(l.Root, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// SourcePath maps a partition entry back onto the scan root.
func (l Layout) SourcePath(relativePath string) string {
	return filepath.Join(l.Root, filepath.FromSlash(relativePath))
}
