//go:build !linux

package fs

import "os"

func copyContents(in, out *os.File) error {
	return copyWithBuffer(in, out)
}
