package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gb-go/internal/gb"
)

const (
	// PartitionFileName is the partition table inside the state directory.
	PartitionFileName = "groups.csv"
	// LockFileName guards the partition table against concurrent writers.
	LockFileName = "groups.lock"
)

// FilePartitionStore keeps the partition in a delimited text file.
//
// Directory structure:
//
//	<state_dir>/
//	  groups.csv     (the partition table)
//	  groups.lock    (advisory lock, shared by readers)
type FilePartitionStore struct {
	stateDir string
	lock     fileLock
}

// NewFilePartitionStore creates a store rooted at stateDir. The directory is
// created on the first Save. A zero lockTimeout waits forever.
func NewFilePartitionStore(stateDir string, lockTimeout time.Duration) *FilePartitionStore {
	return &FilePartitionStore{
		stateDir: stateDir,
		lock: fileLock{
			path:    filepath.Join(stateDir, LockFileName),
			timeout: lockTimeout,
		},
	}
}

// Path returns the location of the partition table.
func (s *FilePartitionStore) Path() string {
	return filepath.Join(s.stateDir, PartitionFileName)
}

// Save replaces the partition table under an exclusive lock.
func (s *FilePartitionStore) Save(p *gb.Partition) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	unlock, err := s.lock.acquire(false)
	if err != nil {
		return err
	}
	defer unlock()

	return writeAtomic(s.Path(), func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := Encode(bw, p); err != nil {
			return err
		}
		return bw.Flush()
	})
}

// Load reads the partition table under a shared lock.
// A missing table yields gb.ErrNoData.
func (s *FilePartitionStore) Load() (*gb.Partition, error) {
	if err := s.requireTable(); err != nil {
		return nil, err
	}

	unlock, err := s.lock.acquire(true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := os.Open(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, gb.ErrNoData
		}
		return nil, fmt.Errorf("opening partition: %w", err)
	}
	defer f.Close()

	p, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path(), err)
	}
	return p, nil
}

// Hold takes a shared lock for the duration of a copy or push.
func (s *FilePartitionStore) Hold() (func() error, error) {
	if err := s.requireTable(); err != nil {
		return nil, err
	}
	return s.lock.acquire(true)
}

func (s *FilePartitionStore) requireTable() error {
	if _, err := os.Stat(s.Path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gb.ErrNoData
		}
		return fmt.Errorf("stat partition: %w", err)
	}
	return nil
}

// Compile-time check that FilePartitionStore implements gb.PartitionStore.
var _ gb.PartitionStore = (*FilePartitionStore)(nil)
