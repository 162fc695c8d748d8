package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "info.txt")
	m := NewOSFilesystemManager(nil, LinkModeAuto)

	if err := m.WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := m.WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got := readFile(t, path); got != "second" {
		t.Errorf("content = %q, want second", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only info.txt, found %d entries", len(entries))
	}
}

func TestExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "a"})
	m := NewOSFilesystemManager(nil, LinkModeAuto)

	if ok, err := m.Exists(filepath.Join(dir, "a.txt")); err != nil || !ok {
		t.Errorf("Exists(a.txt) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := m.Exists(filepath.Join(dir, "b.txt")); err != nil || ok {
		t.Errorf("Exists(b.txt) = %v, %v; want false, nil", ok, err)
	}
}

func TestCopyDir(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"groups.csv":       "data",
		"backup_name.txt":  "name",
		"groups.lock":      "",
		"sub/extra.txt":    "x",
		".tmp-groups-1234": "partial",
	})
	dst := filepath.Join(t.TempDir(), ".file_info")

	m := NewOSFilesystemManager(nil, LinkModeAuto)
	if err := m.CopyDir(src, dst, []string{"*.lock", ".tmp-*"}); err != nil {
		t.Fatalf("CopyDir() error = %v", err)
	}

	for rel, want := range map[string]string{
		"groups.csv":      "data",
		"backup_name.txt": "name",
		"sub/extra.txt":   "x",
	} {
		if got := readFile(t, filepath.Join(dst, filepath.FromSlash(rel))); got != want {
			t.Errorf("%s = %q, want %q", rel, got, want)
		}
	}
	for _, rel := range []string{"groups.lock", ".tmp-groups-1234"} {
		if _, err := os.Lstat(filepath.Join(dst, rel)); !os.IsNotExist(err) {
			t.Errorf("%s should not be copied", rel)
		}
	}

	// The copy is independent of the source.
	srcInfo, _ := os.Stat(filepath.Join(src, "groups.csv"))
	dstInfo, _ := os.Stat(filepath.Join(dst, "groups.csv"))
	if os.SameFile(srcInfo, dstInfo) {
		t.Error("CopyDir should duplicate, not link")
	}
}
