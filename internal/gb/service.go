package gb

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// GBService is the orchestration layer behind the CLI. It is bound to one
// scan root (through its Layout) and holds no state between calls: every
// operation loads what it needs from the stores.
type GBService struct {
	layout     Layout
	fsmgr      FilesystemManager
	partitions PartitionStore
	names      NameStore
	database   Database
	logger     Logger
	clock      Clock
	idgen      IDGenerator

	hostID    string
	vault     Vault
	encryptor Encryptor
}

// NewGBService creates a new GBService with the provided dependencies.
// database may be nil, in which case copies are not recorded.
func NewGBService(layout Layout, fsmgr FilesystemManager, partitions PartitionStore, names NameStore, database Database, logger Logger, clock Clock, idgen IDGenerator) *GBService {
	return &GBService{
		layout:     layout,
		fsmgr:      fsmgr,
		partitions: partitions,
		names:      names,
		database:   database,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
	}
}

// SetVault enables push and pull. Objects are stored under hostID.
// encryptor may be nil if encrypted pushes are not needed.
func (s *GBService) SetVault(hostID string, vault Vault, encryptor Encryptor) {
	s.hostID = hostID
	s.vault = vault
	s.encryptor = encryptor
}

// Layout returns the layout the service is bound to.
func (s *GBService) Layout() Layout {
	return s.layout
}

// List scans the root, groups the files that fit under capBytes, and
// replaces the stored partition with the result.
func (s *GBService) List(capBytes int64) (*ListResult, error) {
	if capBytes <= 0 {
		return nil, fmt.Errorf("group size must be positive, got %d", capBytes)
	}

	s.logger.Info("scan started", "root", s.layout.Root, "cap", humanize.IBytes(uint64(capBytes)))

	scan, err := s.fsmgr.Scan(s.layout.Root, capBytes, s.layout.ScanExcludes())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.layout.Root, err)
	}

	for _, w := range scan.Warnings {
		s.logger.Warn("file skipped", "path", w.Path, "error", w.Err)
	}
	for _, f := range scan.Oversized {
		s.logger.Info("oversized file excluded", "path", f.RelativePath, "size", humanize.IBytes(uint64(f.Size)))
	}

	partition := GroupFiles(scan.Normal, capBytes)
	if err := s.partitions.Save(partition); err != nil {
		return nil, fmt.Errorf("saving partition: %w", err)
	}

	s.logger.Info("partition saved",
		"path", s.partitions.Path(),
		"groups", len(partition.Groups),
		"files", partition.FileCount(),
		"oversized", len(scan.Oversized),
	)

	return &ListResult{
		Partition:     partition,
		Oversized:     scan.Oversized,
		Warnings:      scan.Warnings,
		PartitionPath: s.partitions.Path(),
	}, nil
}

// View returns a summary of each stored group.
// It returns ErrNoData if no partition has been saved.
func (s *GBService) View() ([]GroupSummary, error) {
	partition, err := s.partitions.Load()
	if err != nil {
		return nil, err
	}
	return partition.Summaries(), nil
}

// SetName stores the backup name used in manifests.
func (s *GBService) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("backup name cannot be empty")
	}
	if err := s.names.SetName(name); err != nil {
		return fmt.Errorf("saving backup name: %w", err)
	}
	s.logger.Info("backup name set", "name", name)
	return nil
}

// BackupName returns the stored backup name or DefaultBackupName.
func (s *GBService) BackupName() (string, error) {
	name, err := s.names.Name()
	if err != nil {
		return "", fmt.Errorf("reading backup name: %w", err)
	}
	return name, nil
}
