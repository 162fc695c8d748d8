package gb

// PartitionStore persists the partition between invocations.
// It is the only source of truth for view, copy and push.
type PartitionStore interface {
	// Save replaces the stored partition. It never merges or appends.
	Save(p *Partition) error

	// Load reads the stored partition. It returns ErrNoData when nothing
	// usable is stored and ErrMalformed when the data cannot be parsed.
	Load() (*Partition, error)

	// Hold takes a shared lock on the partition so a concurrent Save
	// cannot replace it. The returned func releases the lock.
	Hold() (release func() error, err error)

	// Path returns where the partition is stored.
	Path() string
}

// DefaultBackupName is used when no backup name has been set.
const DefaultBackupName = "Unnamed Backup"

// NameStore holds the user-supplied backup label.
type NameStore interface {
	// SetName replaces the stored backup name.
	SetName(name string) error

	// Name returns the stored backup name, or DefaultBackupName if none is set.
	Name() (string, error)

	// Path returns where the name is stored.
	Path() string
}
