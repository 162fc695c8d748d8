package gb

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
)

// ManifestFileName is written into every destination by `copy` and `pull`.
const ManifestFileName = "info.txt"

// BackupManifest summarizes one materialized group for a human reader.
// It is written once and never read back.
type BackupManifest struct {
	BackupName  string
	GroupNumber int
	FileCount   int
	TotalSize   int64
}

// String renders the manifest in its on-disk form.
func (m BackupManifest) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Backup Name: %s\n", m.BackupName)
	fmt.Fprintf(&b, "Group Number: %d\n", m.GroupNumber)
	fmt.Fprintf(&b, "Number of Files: %d\n", m.FileCount)
	fmt.Fprintf(&b, "Total Size: %s\n", FormatGB(m.TotalSize))
	return b.String()
}

// PushManifest describes a group stored in a vault.
// Checksums are BLAKE3 over the plaintext, so they are verifiable after decryption.
type PushManifest struct {
	BackupName  string       `toml:"backup_name"`
	GroupNumber int          `toml:"group_number"`
	HostID      string       `toml:"host_id"`
	PushedAt    time.Time    `toml:"pushed_at"`
	Encrypted   bool         `toml:"encrypted"`
	State       []string     `toml:"state"`
	Files       []PushedFile `toml:"files"`
}

// PushedFile is one file entry of a PushManifest.
type PushedFile struct {
	Path     string `toml:"path"`
	Size     int64  `toml:"size"`
	Checksum string `toml:"checksum"`
}

// TotalSize returns the plaintext size of all files in the manifest.
func (m *PushManifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// Encode writes the manifest as TOML.
func (m *PushManifest) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encoding push manifest: %w", err)
	}
	return nil
}

// DecodePushManifest reads a TOML push manifest.
func DecodePushManifest(r io.Reader) (*PushManifest, error) {
	var m PushManifest
	if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding push manifest: %w", err)
	}
	return &m, nil
}
