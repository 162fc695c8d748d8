package gb_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"gb-go/internal/fs"
	"gb-go/internal/gb"
	"gb-go/internal/store"
	"gb-go/internal/testutil"
)

type testEnv struct {
	root    string
	layout  gb.Layout
	svc     *gb.GBService
	db      gb.Database
	service func() *gb.GBService
}

// newTestEnv builds a service over a fresh temp root using the real
// filesystem manager and stores.
func newTestEnv(t *testing.T, linkMode fs.LinkMode) *testEnv {
	t.Helper()
	root := t.TempDir()
	layout := gb.NewLayout(root, "", "")
	db := testutil.NewTestDatabase(t)

	build := func() *gb.GBService {
		return gb.NewGBService(
			layout,
			fs.NewOSFilesystemManager(nil, linkMode),
			store.NewFilePartitionStore(layout.StateDir, time.Second),
			store.NewFileNameStore(layout.StateDir),
			db,
			gb.NewNopLogger(),
			testutil.FixedClock(),
			testutil.NewMaterializationIDs(),
		)
	}
	return &testEnv{root: root, layout: layout, svc: build(), db: db, service: build}
}

func TestList(t *testing.T) {
	t.Run("groups files and reports oversized", func(t *testing.T) {
		env := newTestEnv(t, fs.LinkModeAuto)
		testutil.WriteSizedFile(t, env.root, "a.bin", 40)
		testutil.WriteSizedFile(t, env.root, "b.bin", 40)
		testutil.WriteSizedFile(t, env.root, "big.bin", 150)
		testutil.WriteSizedFile(t, env.root, "sub/c.bin", 30)

		result, err := env.svc.List(100)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		want := []gb.GroupSummary{
			{Number: 1, FileCount: 2, TotalSize: 80},
			{Number: 2, FileCount: 1, TotalSize: 30},
		}
		if got := result.Partition.Summaries(); !reflect.DeepEqual(got, want) {
			t.Errorf("Summaries() = %+v, want %+v", got, want)
		}
		if len(result.Oversized) != 1 || result.Oversized[0].RelativePath != "big.bin" {
			t.Errorf("Oversized = %+v, want [big.bin]", result.Oversized)
		}
		if result.PartitionPath != filepath.Join(env.layout.StateDir, store.PartitionFileName) {
			t.Errorf("PartitionPath = %q", result.PartitionPath)
		}
	})

	t.Run("re-list of an unchanged tree is byte-identical", func(t *testing.T) {
		env := newTestEnv(t, fs.LinkModeAuto)
		testutil.WriteTree(t, env.root, map[string]string{
			"a.txt":     "aaaa",
			"b/c.txt":   "cc",
			"b/d/e.txt": "eeeeee",
		})

		if _, err := env.svc.List(6); err != nil {
			t.Fatalf("first List() error = %v", err)
		}
		first := testutil.ReadFile(t, filepath.Join(env.layout.StateDir, store.PartitionFileName))

		// A copy in between must not leak into the next scan.
		if _, err := env.svc.Copy(1, ""); err != nil {
			t.Fatalf("Copy() error = %v", err)
		}

		if _, err := env.svc.List(6); err != nil {
			t.Fatalf("second List() error = %v", err)
		}
		second := testutil.ReadFile(t, filepath.Join(env.layout.StateDir, store.PartitionFileName))

		if first != second {
			t.Errorf("partition changed between runs:\n%s\n---\n%s", first, second)
		}
	})

	t.Run("list replaces the previous partition", func(t *testing.T) {
		env := newTestEnv(t, fs.LinkModeAuto)
		testutil.WriteTree(t, env.root, map[string]string{"a.txt": "a", "b.txt": "b"})
		if _, err := env.svc.List(1); err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if err := os.Remove(filepath.Join(env.root, "b.txt")); err != nil {
			t.Fatal(err)
		}
		if _, err := env.svc.List(1); err != nil {
			t.Fatalf("List() error = %v", err)
		}

		summaries, err := env.svc.View()
		if err != nil {
			t.Fatalf("View() error = %v", err)
		}
		if len(summaries) != 1 {
			t.Errorf("View() = %+v, want one group", summaries)
		}
	})

	t.Run("rejects non-positive cap", func(t *testing.T) {
		env := newTestEnv(t, fs.LinkModeAuto)
		if _, err := env.svc.List(0); err == nil {
			t.Error("List(0) expected error")
		}
	})
}

func TestView(t *testing.T) {
	t.Run("no data before list", func(t *testing.T) {
		env := newTestEnv(t, fs.LinkModeAuto)
		if _, err := env.svc.View(); !errors.Is(err, gb.ErrNoData) {
			t.Errorf("View() error = %v, want ErrNoData", err)
		}
	})

	t.Run("fresh service sees the persisted partition", func(t *testing.T) {
		env := newTestEnv(t, fs.LinkModeAuto)
		testutil.WriteTree(t, env.root, map[string]string{"a.txt": "aaa", "b.txt": "bbb"})
		if _, err := env.svc.List(3); err != nil {
			t.Fatalf("List() error = %v", err)
		}

		summaries, err := env.service().View()
		if err != nil {
			t.Fatalf("View() error = %v", err)
		}
		want := []gb.GroupSummary{
			{Number: 1, FileCount: 1, TotalSize: 3},
			{Number: 2, FileCount: 1, TotalSize: 3},
		}
		if !reflect.DeepEqual(summaries, want) {
			t.Errorf("View() = %+v, want %+v", summaries, want)
		}
	})
}

func TestSetName(t *testing.T) {
	env := newTestEnv(t, fs.LinkModeAuto)

	name, err := env.svc.BackupName()
	if err != nil {
		t.Fatalf("BackupName() error = %v", err)
	}
	if name != gb.DefaultBackupName {
		t.Errorf("BackupName() = %q, want default", name)
	}

	if err := env.svc.SetName("  "); err == nil {
		t.Error("SetName(blank) expected error")
	}
	if err := env.svc.SetName("Photos 2024"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}
	if name, _ := env.service().BackupName(); name != "Photos 2024" {
		t.Errorf("BackupName() = %q, want Photos 2024", name)
	}
}

type logRecord struct {
	level string
	msg   string
}

// recordingLogger keeps level and message of every record.
type recordingLogger struct {
	records []logRecord
}

func (l *recordingLogger) add(level, msg string) {
	l.records = append(l.records, logRecord{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("DEBUG", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("INFO", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("WARN", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("ERROR", msg) }

func TestList_OversizedLoggedAtInfo(t *testing.T) {
	root := t.TempDir()
	layout := gb.NewLayout(root, "", "")
	logger := &recordingLogger{}
	svc := gb.NewGBService(
		layout,
		fs.NewOSFilesystemManager(nil, fs.LinkModeAuto),
		store.NewFilePartitionStore(layout.StateDir, time.Second),
		store.NewFileNameStore(layout.StateDir),
		testutil.NewTestDatabase(t),
		logger,
		testutil.FixedClock(),
		testutil.NewMaterializationIDs(),
	)
	testutil.WriteSizedFile(t, root, "small.bin", 10)
	testutil.WriteSizedFile(t, root, "big.bin", 150)

	result, err := svc.List(100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Oversized) != 1 {
		t.Fatalf("Oversized = %+v, want one file", result.Oversized)
	}

	var found bool
	for _, r := range logger.records {
		if r.msg != "oversized file excluded" {
			continue
		}
		found = true
		if r.level != "INFO" {
			t.Errorf("oversized file logged at %s, want INFO", r.level)
		}
	}
	if !found {
		t.Error("oversized file was not logged")
	}
}
