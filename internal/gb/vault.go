package gb

import "io"

// Vault is a remote (or remote-like) object store used by push and pull.
// Keys are slash-separated and never start with a slash.
type Vault interface {
	// Put stores size bytes read from r under key, replacing any existing object.
	Put(key string, r io.Reader, size int64) error

	// Get writes the object stored under key to w.
	Get(key string, w io.Writer) error

	// ValidateSetup verifies that the vault is reachable and usable.
	ValidateSetup() error
}
