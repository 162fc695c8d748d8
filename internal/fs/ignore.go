package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// defaultIgnorePatterns are applied to every scan. The ignore file itself
// is configuration, not data to back up.
var defaultIgnorePatterns = []string{IgnoreFileName}

// ignoreRule is one line of .gbignore or of the configured ignore list.
//
//	*.tmp     any file or directory named *.tmp, at any depth
//	cache/    directories only
//	src/*.o   anchored: matched against the whole relative path
type ignoreRule struct {
	glob     string
	anchored bool
	dirOnly  bool
}

func (r ignoreRule) match(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	target := path.Base(rel)
	if r.anchored {
		target = rel
	}
	ok, _ := path.Match(r.glob, target)
	return ok
}

// IgnoreMatcher decides which entries a scan or copy leaves out. Paths are
// slash-separated and relative to the walk root.
type IgnoreMatcher struct {
	rules []ignoreRule
	// pruned holds exact relative directories that are never entered,
	// such as the group tree inside a backup directory.
	pruned map[string]bool
}

// NewIgnoreMatcher parses patterns and records prunedDirs. Blank lines and
// '#' comments are dropped. A malformed glob is an error naming the pattern.
func NewIgnoreMatcher(patterns []string, prunedDirs ...string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{pruned: make(map[string]bool, len(prunedDirs))}
	for _, d := range prunedDirs {
		m.pruned[strings.Trim(d, "/")] = true
	}

	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		rule := ignoreRule{dirOnly: strings.HasSuffix(raw, "/")}
		rule.glob = strings.TrimPrefix(strings.TrimSuffix(raw, "/"), "/")
		rule.anchored = strings.Contains(rule.glob, "/") || strings.HasPrefix(raw, "/")
		if _, err := path.Match(rule.glob, ""); err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", raw, err)
		}
		m.rules = append(m.rules, rule)
	}
	return m, nil
}

// SkipDir reports whether the walk should not descend into rel.
func (m *IgnoreMatcher) SkipDir(rel string) bool {
	if m.pruned[rel] {
		return true
	}
	return m.matchAny(rel, true)
}

// SkipFile reports whether the file at rel is left out.
func (m *IgnoreMatcher) SkipFile(rel string) bool {
	return m.matchAny(rel, false)
}

func (m *IgnoreMatcher) matchAny(rel string, isDir bool) bool {
	for _, r := range m.rules {
		if r.match(rel, isDir) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile returns the lines of an ignore file with CRLF endings
// stripped. A missing file yields no patterns.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return lines, nil
}
