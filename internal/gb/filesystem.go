package gb

import "io"

// LinkMethod reports how a file was materialized.
type LinkMethod int

const (
	// LinkSkipped means source and destination are the same file on disk.
	LinkSkipped LinkMethod = iota
	// LinkHardlink means a new hard link was created.
	LinkHardlink
	// LinkCopy means the content was duplicated into a new file.
	LinkCopy
	// LinkExisting means the destination already was a link to the source.
	LinkExisting
)

func (m LinkMethod) String() string {
	switch m {
	case LinkSkipped:
		return "skipped"
	case LinkHardlink:
		return "hardlink"
	case LinkCopy:
		return "copy"
	case LinkExisting:
		return "existing"
	default:
		return "unknown"
	}
}

// FilesystemManager abstracts the filesystem so the service can be tested
// against temporary trees and so platform details stay out of it.
type FilesystemManager interface {
	// Scan walks root and returns every regular file, split at capBytes.
	// exclude lists slash-separated directories, relative to root, that are
	// not descended into. Unreadable entries become warnings, not errors;
	// only a failure on root itself is returned as an error.
	Scan(root string, capBytes int64, exclude []string) (*ScanResult, error)

	// EnsureDir creates path and any missing parents.
	EnsureDir(path string) error

	// LinkOrDuplicate makes dst refer to the content of src, by hard link
	// when possible and by copy otherwise (subject to the configured mode).
	LinkOrDuplicate(src, dst string) (LinkMethod, error)

	// SamePath reports whether a and b resolve to the same real path.
	// b does not need to exist.
	SamePath(a, b string) (bool, error)

	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// WriteFile atomically replaces path with data.
	WriteFile(path string, data []byte) error

	// CopyDir copies the tree at src to dst, skipping entries matching exclude.
	CopyDir(src, dst string, exclude []string) error

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates path for writing, creating parents as needed.
	Create(path string) (io.WriteCloser, error)
}
