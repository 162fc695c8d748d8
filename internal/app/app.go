package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gb-go/internal/config"
	"gb-go/internal/database"
	"gb-go/internal/encryption"
	"gb-go/internal/fs"
	"gb-go/internal/gb"
	"gb-go/internal/store"
	"gb-go/internal/vault"
)

// GBApp is the application layer between the CLI and GBService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings from the command line, and manages the DB
// lifecycle on Close.
type GBApp struct {
	cfg        *config.Config
	db         gb.Database
	encryptor  gb.Encryptor
	partitions *store.FilePartitionStore
	service    *gb.GBService
	op         *Operation
	logFile    *os.File
}

// NewGBApp creates a fully wired GBApp for the scan root rawRoot.
// operation identifies the CLI command being run (e.g. "list", "copy") and
// parameters are recorded with it in the history.
// The caller must call Close when done.
func NewGBApp(cfg *config.Config, rawRoot, operation, parameters string) (*GBApp, error) {
	root, err := resolveRoot(rawRoot)
	if err != nil {
		return nil, err
	}

	linkMode, err := fs.ParseLinkMode(cfg.Filesystem.LinkMode)
	if err != nil {
		return nil, err
	}
	lockTimeout, err := cfg.LockTimeoutDuration()
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	layout := gb.NewLayout(root, cfg.Grouping.StateDir, cfg.Grouping.BackupDir)
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore, linkMode)
	partitions := store.NewFilePartitionStore(layout.StateDir, lockTimeout)
	names := store.NewFileNameStore(layout.StateDir)

	svc := gb.NewGBService(layout, fsmgr, partitions, names, db, &slogAdapter{l: logger}, gb.RealClock{}, gb.UUIDGenerator{})

	return &GBApp{
		cfg:        cfg,
		db:         db,
		encryptor:  enc,
		partitions: partitions,
		service:    svc,
		op:         NewOperation(operation, parameters),
		logFile:    logFile,
	}, nil
}

// resolveRoot makes rawRoot absolute, resolves symlinks and checks that it
// is a directory.
func resolveRoot(rawRoot string) (string, error) {
	if rawRoot == "" {
		return "", fmt.Errorf("root directory is required")
	}
	abs, err := filepath.Abs(rawRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", rawRoot)
	}
	return resolved, nil
}

// Layout returns the resolved layout of the scan root.
func (a *GBApp) Layout() gb.Layout {
	return a.service.Layout()
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for commands that change state.
func (a *GBApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// List scans the root and saves a new partition. groupSize overrides the
// configured group size when non-empty.
func (a *GBApp) List(groupSize string) (*gb.ListResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	if groupSize == "" {
		groupSize = a.cfg.Grouping.GroupSize
	}
	capBytes, err := gb.ParseGroupSize(groupSize)
	if err != nil {
		return nil, a.op.Track(err)
	}
	result, err := a.service.List(capBytes)
	return result, a.op.Track(err)
}

// View returns the stored group summaries.
func (a *GBApp) View() ([]gb.GroupSummary, error) {
	return a.service.View()
}

// Copy materializes a group. An empty dest selects the default destination.
func (a *GBApp) Copy(groupNumber int, dest string) (*gb.CopyResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	if groupNumber < 1 {
		return nil, a.op.Track(fmt.Errorf("group number must be positive, got %d", groupNumber))
	}
	if dest != "" {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return nil, a.op.Track(fmt.Errorf("resolving destination: %w", err))
		}
		dest = abs
	}
	result, err := a.service.Copy(groupNumber, dest)
	if err == nil && len(result.Failures) > 0 {
		a.op.Status = "error"
	}
	return result, a.op.Track(err)
}

// SetName stores the backup name.
func (a *GBApp) SetName(name string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.op.Track(a.service.SetName(name))
}

// attachVault connects the service to the first configured vault.
func (a *GBApp) attachVault() error {
	if len(a.cfg.Vaults) == 0 {
		return gb.ErrNoVault
	}
	v, err := vault.NewVaultFromConfig(a.cfg.Vaults[0])
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	a.service.SetVault(a.cfg.HostID, v, a.encryptor)
	return nil
}

// Push uploads a group to the first configured vault.
func (a *GBApp) Push(groupNumber int, encrypt bool) (*gb.PushManifest, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	if err := a.attachVault(); err != nil {
		return nil, a.op.Track(err)
	}
	manifest, err := a.service.Push(groupNumber, encrypt)
	return manifest, a.op.Track(err)
}

// Pull downloads a pushed group into dest. passphrase is only called when
// the group was pushed encrypted.
func (a *GBApp) Pull(groupNumber int, dest string, passphrase func() (string, error)) (*gb.PushManifest, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	if err := a.attachVault(); err != nil {
		return nil, a.op.Track(err)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, a.op.Track(fmt.Errorf("resolving destination: %w", err))
	}

	unlock := func() (gb.DecryptionContext, error) {
		p, err := passphrase()
		if err != nil {
			return nil, err
		}
		return a.encryptor.Unlock(p)
	}
	manifest, err := a.service.Pull(groupNumber, abs, unlock)
	return manifest, a.op.Track(err)
}

// GetHistory returns the most recent operations.
func (a *GBApp) GetHistory(limit int) ([]*gb.Operation, error) {
	return a.service.GetHistory(limit)
}

// GetCopyLog returns the recorded copies of one group.
func (a *GBApp) GetCopyLog(groupNumber int) ([]*gb.Materialization, error) {
	return a.service.GetCopyLog(groupNumber)
}

// PartitionPath returns where the partition is stored.
func (a *GBApp) PartitionPath() string {
	return a.partitions.Path()
}

// Close finalizes the operation and closes all resources.
// Persisted operations get their final status recorded first.
func (a *GBApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// SetupKeys generates the encryption key pair protected by passphrase.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	return nil
}
