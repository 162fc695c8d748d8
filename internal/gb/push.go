package gb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

const pushManifestName = "manifest.toml"

// vaultKey builds an object key under the host's group prefix.
func (s *GBService) vaultKey(groupNumber int, parts ...string) string {
	elems := append([]string{s.hostID, fmt.Sprintf("group_%d", groupNumber)}, parts...)
	return path.Join(elems...)
}

// Push uploads one group, a snapshot of the state directory and a manifest
// to the vault. The manifest is written last, so a failed push leaves no
// manifest behind and pull will refuse it.
func (s *GBService) Push(groupNumber int, encrypt bool) (*PushManifest, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}
	if encrypt && (s.encryptor == nil || !s.encryptor.IsConfigured()) {
		return nil, fmt.Errorf("encryption requested but no keys are configured (run `gb config keys`)")
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
	group, ok := partition.Find(groupNumber)
	if !ok {
		return nil, fmt.Errorf("group %d: %w", groupNumber, ErrGroupNotFound)
	}

	name, err := s.BackupName()
	if err != nil {
		return nil, err
	}

	manifest := &PushManifest{
		BackupName:  name,
		GroupNumber: groupNumber,
		HostID:      s.hostID,
		PushedAt:    s.clock.Now().UTC(),
		Encrypted:   encrypt,
	}

	s.logger.Info("push started", "group", groupNumber, "files", len(group.Files), "encrypted", encrypt)

	for _, f := range group.Files {
		checksum, err := s.pushFile(s.layout.SourcePath(f.RelativePath), s.vaultKey(groupNumber, "files", f.RelativePath), f.Size, encrypt)
		if err != nil {
			return nil, fmt.Errorf("pushing %s: %w", f.RelativePath, err)
		}
		manifest.Files = append(manifest.Files, PushedFile{Path: f.RelativePath, Size: f.Size, Checksum: checksum})
		s.logger.Debug("file pushed", "path", f.RelativePath)
	}

	for _, name := range []string{filepath.Base(s.partitions.Path()), filepath.Base(s.names.Path())} {
		src := filepath.Join(s.layout.StateDir, name)
		exists, err := s.fsmgr.Exists(src)
		if err != nil {
			return nil, fmt.Errorf("checking state file %s: %w", name, err)
		}
		if !exists {
			continue
		}
		if err := s.pushStateFile(src, s.vaultKey(groupNumber, "state", name)); err != nil {
			return nil, fmt.Errorf("pushing state file %s: %w", name, err)
		}
		manifest.State = append(manifest.State, name)
	}

	var buf bytes.Buffer
	if err := manifest.Encode(&buf); err != nil {
		return nil, err
	}
	if err := s.vault.Put(s.vaultKey(groupNumber, pushManifestName), &buf, int64(buf.Len())); err != nil {
		return nil, fmt.Errorf("uploading manifest: %w", err)
	}

	s.logger.Info("push complete", "group", groupNumber, "files", len(manifest.Files))
	return manifest, nil
}

// pushFile uploads one file and returns the checksum of its plaintext.
// Encrypted content is spooled to a temp file first because the vault
// needs the stored size up front.
func (s *GBService) pushFile(src, key string, size int64, encrypt bool) (string, error) {
	f, err := s.fsmgr.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	h := newChecksum()
	plain := io.TeeReader(f, h)

	if !encrypt {
		if err := s.vault.Put(key, plain, size); err != nil {
			return "", err
		}
		return checksumHex(h), nil
	}

	spool, err := os.CreateTemp("", "gb-push-*")
	if err != nil {
		return "", fmt.Errorf("creating spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	if err := s.encryptor.Encrypt(plain, spool); err != nil {
		return "", fmt.Errorf("encrypting: %w", err)
	}
	stored, err := spool.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("sizing spool file: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding spool file: %w", err)
	}
	if err := s.vault.Put(key, spool, stored); err != nil {
		return "", err
	}
	return checksumHex(h), nil
}

func (s *GBService) pushStateFile(src, key string) error {
	f, err := s.fsmgr.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return s.vault.Put(key, bytes.NewReader(data), int64(len(data)))
}

// UnlockFunc produces a decryption context on demand, e.g. by prompting
// for a passphrase. Pull only calls it for encrypted groups.
type UnlockFunc func() (DecryptionContext, error)

// Pull downloads a pushed group into dest, verifying every checksum.
// It aborts on the first failure; files already written stay in place.
func (s *GBService) Pull(groupNumber int, dest string, unlock UnlockFunc) (*PushManifest, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}

	var buf bytes.Buffer
	if err := s.vault.Get(s.vaultKey(groupNumber, pushManifestName), &buf); err != nil {
		return nil, fmt.Errorf("fetching manifest for group %d: %w", groupNumber, err)
	}
	manifest, err := DecodePushManifest(&buf)
	if err != nil {
		return nil, err
	}

	var dctx DecryptionContext
	if manifest.Encrypted {
		if unlock == nil {
			return nil, errors.New("group is encrypted and no passphrase is available")
		}
		if dctx, err = unlock(); err != nil {
			return nil, fmt.Errorf("unlocking private key: %w", err)
		}
	}

	if err := s.fsmgr.EnsureDir(dest); err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", dest, err)
	}

	s.logger.Info("pull started", "group", groupNumber, "files", len(manifest.Files), "dest", dest)

	for _, f := range manifest.Files {
		if !isLocalPath(f.Path) {
			return nil, fmt.Errorf("manifest entry escapes destination: %q", f.Path)
		}
		if err := s.pullFile(s.vaultKey(groupNumber, "files", f.Path), filepath.Join(dest, filepath.FromSlash(f.Path)), f.Checksum, dctx); err != nil {
			return nil, fmt.Errorf("pulling %s: %w", f.Path, err)
		}
		s.logger.Debug("file pulled", "path", f.Path)
	}

	stateDir := filepath.Join(dest, filepath.Base(s.layout.StateDir))
	exists, err := s.fsmgr.Exists(stateDir)
	if err != nil {
		return nil, fmt.Errorf("checking state snapshot: %w", err)
	}
	if !exists {
		for _, name := range manifest.State {
			if !isLocalPath(name) {
				return nil, fmt.Errorf("manifest state entry escapes destination: %q", name)
			}
			if err := s.pullFile(s.vaultKey(groupNumber, "state", name), filepath.Join(stateDir, name), "", nil); err != nil {
				return nil, fmt.Errorf("pulling state file %s: %w", name, err)
			}
		}
	}

	info := BackupManifest{
		BackupName:  manifest.BackupName,
		GroupNumber: manifest.GroupNumber,
		FileCount:   len(manifest.Files),
		TotalSize:   manifest.TotalSize(),
	}
	if err := s.fsmgr.WriteFile(filepath.Join(dest, ManifestFileName), []byte(info.String())); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	s.logger.Info("pull complete", "group", groupNumber, "files", len(manifest.Files))
	return manifest, nil
}

// pullFile fetches one object into dst. An empty checksum skips verification.
func (s *GBService) pullFile(key, dst, checksum string, dctx DecryptionContext) (err error) {
	out, err := s.fsmgr.Create(dst)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	h := newChecksum()
	w := io.MultiWriter(out, h)

	if dctx == nil {
		if err := s.vault.Get(key, w); err != nil {
			return err
		}
	} else {
		// Decryption needs a reader, so stream the object through a pipe.
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(s.vault.Get(key, pw))
		}()
		if err := dctx.Decrypt(pr, w); err != nil {
			pr.CloseWithError(err)
			return fmt.Errorf("decrypting: %w", err)
		}
	}

	if checksum != "" {
		if got := checksumHex(h); got != checksum {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, checksum)
		}
	}
	return nil
}

// isLocalPath reports whether a slash-separated path stays inside its root.
func isLocalPath(p string) bool {
	return p != "" && filepath.IsLocal(filepath.FromSlash(p))
}
