package database

import (
	"path/filepath"
	"testing"
	"time"

	"gb-go/internal/gb"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	t.Run("create and finish", func(t *testing.T) {
		db := newTestDB(t)

		op, err := db.CreateOperation("copy", "group=2 dest=/mnt/usb")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if op.ID == 0 {
			t.Error("CreateOperation() did not assign an ID")
		}
		if op.Status != "running" {
			t.Errorf("Status = %q, want running", op.Status)
		}

		if err := db.FinishOperation(op.ID, "success"); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		ops, err := db.ListOperations(10)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("ListOperations() returned %d, want 1", len(ops))
		}
		got := ops[0]
		if got.Operation != "copy" || got.Parameters != "group=2 dest=/mnt/usb" {
			t.Errorf("got %q %q", got.Operation, got.Parameters)
		}
		if got.Status != "success" {
			t.Errorf("Status = %q, want success", got.Status)
		}
		if !got.FinishedAt.Valid {
			t.Error("FinishedAt should be set")
		}
	})

	t.Run("list is newest first and limited", func(t *testing.T) {
		db := newTestDB(t)

		for _, name := range []string{"list", "view", "copy"} {
			if _, err := db.CreateOperation(name, ""); err != nil {
				t.Fatalf("CreateOperation(%s) error = %v", name, err)
			}
		}

		ops, err := db.ListOperations(2)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 2 {
			t.Fatalf("ListOperations() returned %d, want 2", len(ops))
		}
		if ops[0].Operation != "copy" || ops[1].Operation != "view" {
			t.Errorf("order = [%s %s], want [copy view]", ops[0].Operation, ops[1].Operation)
		}
		if ops[0].FinishedAt.Valid {
			t.Error("unfinished operation should have no FinishedAt")
		}
	})

	t.Run("finishing an unknown operation fails", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.FinishOperation(42, "success"); err == nil {
			t.Error("FinishOperation() expected error for unknown id")
		}
	})
}

func TestSQLiteDatabase_Materializations(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	record := func(id, root string, group int, at time.Time) *gb.Materialization {
		return &gb.Materialization{
			ID:          id,
			Root:        root,
			GroupNumber: group,
			Destination: "/mnt/usb/" + id,
			BackupName:  "Photos",
			FileCount:   3,
			TotalSize:   1024,
			Failures:    1,
			CreatedAt:   at,
		}
	}

	db := newTestDB(t)
	for _, m := range []*gb.Materialization{
		record("id-1", "/data", 1, base),
		record("id-2", "/data", 1, base.Add(time.Hour)),
		record("id-3", "/data", 2, base),
		record("id-4", "/other", 1, base),
	} {
		if err := db.CreateMaterialization(m); err != nil {
			t.Fatalf("CreateMaterialization(%s) error = %v", m.ID, err)
		}
	}

	got, err := db.FindMaterializationsByGroup("/data", 1)
	if err != nil {
		t.Fatalf("FindMaterializationsByGroup() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != "id-2" || got[1].ID != "id-1" {
		t.Errorf("order = [%s %s], want [id-2 id-1]", got[0].ID, got[1].ID)
	}
	first := got[1]
	if first.Destination != "/mnt/usb/id-1" || first.FileCount != 3 || first.TotalSize != 1024 || first.Failures != 1 {
		t.Errorf("unexpected record %+v", first)
	}
	if !first.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, base)
	}

	none, err := db.FindMaterializationsByGroup("/data", 9)
	if err != nil {
		t.Fatalf("FindMaterializationsByGroup() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no records, got %d", len(none))
	}
}

func TestSQLiteDatabase_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")

	db, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	if _, err := db.CreateOperation("name", "name=Photos"); err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	db.Close()

	reopened, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	if err := reopened.CheckSchema(); err != nil {
		t.Errorf("CheckSchema() error = %v", err)
	}
	ops, err := reopened.ListOperations(5)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "name" {
		t.Errorf("unexpected operations %+v", ops)
	}
}
