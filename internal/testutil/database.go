package testutil

import (
	"testing"

	"gb-go/internal/database"
	"gb-go/internal/gb"
)

// NewTestDatabase creates a new in-memory SQLite database with the history schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) gb.Database {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
