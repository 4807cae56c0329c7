package testutil

import (
	"testing"

	"photobak/internal/database"
	"photobak/internal/photobak"
)

// NewTestDatabase creates an in-memory SQLite run store with migrations
// applied. It is closed when the test completes.
func NewTestDatabase(t *testing.T, clock photobak.Clock) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
