package gb

import (
	"fmt"
	"path/filepath"
)

// stateSnapshotExcludes are state directory entries not copied into destinations.
var stateSnapshotExcludes = []string{"*.lock", ".tmp-*"}

// LinkFailure records a file that could not be materialized.
type LinkFailure struct {
	RelativePath string
	Err          error
}

// CopyResult is returned by GBService.Copy.
type CopyResult struct {
	Manifest    BackupManifest
	Destination string
	Failures    []LinkFailure
	SelfLinked  int
	StateCopied bool
}

// Copy materializes one group into dest (or the default group destination
// when dest is empty) and writes the manifest there.
//
// Link failures do not stop the copy: they are collected in the result and
// the manifest counts only files that were actually materialized. A group
// number that is not in the partition yields an empty manifest and nothing
// else on disk.
func (s *GBService) Copy(groupNumber int, dest string) (*CopyResult, error) {
	if dest == "" {
		dest = s.layout.GroupDestination(groupNumber)
	}

	release, err := s.partitions.Hold()
	if err != nil {
		return nil, err
	}
	defer release()

	partition, err := s.partitions.Load()
	if err != nil {
		return nil, err
	}

	name, err := s.BackupName()
	if err != nil {
		return nil, err
	}

	if err := s.fsmgr.EnsureDir(dest); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", dest, err)
	}

	group, found := partition.Find(groupNumber)
	if !found {
		s.logger.Warn("group not in partition", "group", groupNumber, "groups", len(partition.Groups))
	}

	s.logger.Info("copy started", "group", groupNumber, "files", len(group.Files), "dest", dest)

	result := &CopyResult{
		Destination: dest,
		Manifest: BackupManifest{
			BackupName:  name,
			GroupNumber: groupNumber,
		},
	}

	for _, f := range group.Files {
		method, err := s.materializeFile(f, dest)
		if err != nil {
			s.logger.Error("file not materialized", "path", f.RelativePath, "error", err)
			result.Failures = append(result.Failures, LinkFailure{RelativePath: f.RelativePath, Err: err})
			continue
		}
		if method == LinkSkipped {
			result.SelfLinked++
		}
		s.logger.Debug("file materialized", "path", f.RelativePath, "method", method.String())
		result.Manifest.FileCount++
		result.Manifest.TotalSize += f.Size
	}

	manifestPath := filepath.Join(dest, ManifestFileName)
	if err := s.fsmgr.WriteFile(manifestPath, []byte(result.Manifest.String())); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	if found {
		copied, err := s.copyStateSnapshot(dest)
		if err != nil {
			return nil, err
		}
		result.StateCopied = copied
	}

	if err := s.recordMaterialization(result); err != nil {
		return nil, err
	}

	s.logger.Info("copy complete",
		"group", groupNumber,
		"files", result.Manifest.FileCount,
		"failures", len(result.Failures),
		"dest", dest,
	)
	return result, nil
}

// materializeFile places one partition entry under dest.
func (s *GBService) materializeFile(f FileEntry, dest string) (LinkMethod, error) {
	src := s.layout.SourcePath(f.RelativePath)
	dst := filepath.Join(dest, filepath.FromSlash(f.RelativePath))

	if err := s.fsmgr.EnsureDir(filepath.Dir(dst)); err != nil {
		return 0, fmt.Errorf("creating parent directory: %w", err)
	}

	same, err := s.fsmgr.SamePath(src, dst)
	if err != nil {
		return 0, fmt.Errorf("resolving paths: %w", err)
	}
	if same {
		return LinkSkipped, nil
	}

	return s.fsmgr.LinkOrDuplicate(src, dst)
}

// copyStateSnapshot copies the state directory into dest unless a copy is
// already there. Existing copies are left untouched.
func (s *GBService) copyStateSnapshot(dest string) (bool, error) {
	target := filepath.Join(dest, filepath.Base(s.layout.StateDir))

	exists, err := s.fsmgr.Exists(target)
	if err != nil {
		return false, fmt.Errorf("checking state snapshot: %w", err)
	}
	if exists {
		s.logger.Info("state snapshot already present, skipped", "path", target)
		return false, nil
	}

	if err := s.fsmgr.CopyDir(s.layout.StateDir, target, stateSnapshotExcludes); err != nil {
		return false, fmt.Errorf("copying state directory: %w", err)
	}
	return true, nil
}

func (s *GBService) recordMaterialization(result *CopyResult) error {
	if s.database == nil {
		return nil
	}
	m := &Materialization{
		ID:          s.idgen.New(),
		Root:        s.layout.Root,
		GroupNumber: result.Manifest.GroupNumber,
		Destination: result.Destination,
		BackupName:  result.Manifest.BackupName,
		FileCount:   result.Manifest.FileCount,
		TotalSize:   result.Manifest.TotalSize,
		Failures:    len(result.Failures),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.database.CreateMaterialization(m); err != nil {
		return fmt.Errorf("recording copy: %w", err)
	}
	return nil
}
