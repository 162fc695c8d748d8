package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gb-go/internal/gb"
)

// IgnoreFileName is read from the scan root, if present.
const IgnoreFileName = ".gbignore"

// ErrLineBreakInPath marks files whose relative path holds a CR or LF.
// The group file stores one path per record and cannot carry them.
var ErrLineBreakInPath = errors.New("path contains a line break")

// Scan walks root in lexical order and returns every regular file, split at
// capBytes. Directories listed in exclude (slash-separated, relative to
// root) and entries matched by the ignore rules are skipped silently.
// Symlinks and other non-regular files are skipped as well. Files that
// cannot be recorded, such as those with a line break in their path, become
// warnings.
func (m *OSFilesystemManager) Scan(root string, capBytes int64, exclude []string) (*gb.ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := slices.Concat(defaultIgnorePatterns, m.ignorePatterns, filePatterns)
	matcher, err := NewIgnoreMatcher(patterns, exclude...)
	if err != nil {
		return nil, err
	}

	var files []gb.FileEntry
	var warnings []gb.ScanWarning

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if p == root {
			// A failure on the root itself is fatal.
			return err
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		slashRel := filepath.ToSlash(rel)

		if err != nil {
			warnings = append(warnings, gb.ScanWarning{Path: slashRel, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if matcher.SkipDir(slashRel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.SkipFile(slashRel) {
			return nil
		}
		if strings.ContainsAny(slashRel, "\r\n") {
			warnings = append(warnings, gb.ScanWarning{Path: slashRel, Err: ErrLineBreakInPath})
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			warnings = append(warnings, gb.ScanWarning{Path: slashRel, Err: err})
			return nil
		}
		files = append(files, gb.FileEntry{RelativePath: slashRel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	normal, oversized := gb.SplitOversized(files, capBytes)
	return &gb.ScanResult{
		Normal:    normal,
		Oversized: oversized,
		Warnings:  warnings,
	}, nil
}
