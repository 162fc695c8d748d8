package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gb-go/internal/gb"
)

// LinkOrDuplicate makes dst refer to the content of src.
//
// If dst already exists and is the same file as src (a hard link made by an
// earlier copy), nothing is done. Any other existing dst is an error: it is
// never overwritten.
func (m *OSFilesystemManager) LinkOrDuplicate(src, dst string) (gb.LinkMethod, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return 0, fmt.Errorf("source is not a regular file: %s", src)
	}

	if dstInfo, err := os.Lstat(dst); err == nil {
		if os.SameFile(srcInfo, dstInfo) {
			return gb.LinkExisting, nil
		}
		return 0, fmt.Errorf("destination already exists: %s", dst)
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("stat destination: %w", err)
	}

	if m.linkMode != LinkModeCopy {
		linkErr := os.Link(src, dst)
		if linkErr == nil {
			return gb.LinkHardlink, nil
		}
		if m.linkMode == LinkModeHardlink {
			return 0, fmt.Errorf("hard linking: %w", linkErr)
		}
	}

	if err := duplicateFile(src, dst, srcInfo.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("copying: %w", err)
	}
	return gb.LinkCopy, nil
}

// duplicateFile copies src into a new file at dst. A partial dst is removed.
func duplicateFile(src, dst string, perm os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	return copyContents(in, out)
}

// copyWithBuffer is the portable read/write copy.
func copyWithBuffer(in, out *os.File) error {
	_, err := io.Copy(out, in)
	return err
}

// SamePath reports whether a and b name the same location once symlinks in
// their directories are resolved. b does not need to exist; a does.
func (m *OSFilesystemManager) SamePath(a, b string) (bool, error) {
	ra, err := realPath(a)
	if err != nil {
		return false, err
	}
	rb, err := realPath(b)
	if err != nil {
		return false, err
	}
	return ra == rb, nil
}

// realPath resolves symlinks in the parent directory of p and joins the
// base name back on, so a not-yet-created p can still be compared.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}
