package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyDir copies the tree at src to dst. Entries whose name or relative
// path matches one of the exclude patterns are skipped. Regular files are
// duplicated (not linked) so later writes to src do not change the copy.
func (m *OSFilesystemManager) CopyDir(src, dst string, exclude []string) error {
	matcher, err := NewIgnoreMatcher(exclude)
	if err != nil {
		return err
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if rel != "." {
			slashRel := filepath.ToSlash(rel)
			if d.IsDir() && matcher.SkipDir(slashRel) {
				return filepath.SkipDir
			}
			if !d.IsDir() && matcher.SkipFile(slashRel) {
				return nil
			}
		}

		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := duplicateFile(p, target, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copying %s: %w", rel, err)
		}
		return nil
	})
}
