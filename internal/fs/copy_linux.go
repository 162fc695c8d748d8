//go:build linux

package fs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// copyContents copies with copy_file_range, which lets the kernel (or a
// reflink-capable filesystem) move the data, and falls back to read/write
// when the call is not supported for this pair of files.
func copyContents(in, out *os.File) error {
	info, err := in.Stat()
	if err != nil {
		return err
	}

	remaining := info.Size()
	var written int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(in.Fd()), nil, int(out.Fd()), nil, int(min(remaining, 1<<30)), 0)
		if err != nil {
			if written == 0 && isFallbackErr(err) {
				return copyWithBuffer(in, out)
			}
			return err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		written += int64(n)
	}
	return nil
}

func isFallbackErr(err error) bool {
	return errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EINVAL)
}
