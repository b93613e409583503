package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hitoshi/cafelist/internal/database"
)

// newTestDB はマイグレーション適用済みのSQLiteテストDBを開く。
// テスト終了時に自動でクローズされる。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "sqlite://" + filepath.Join(t.TempDir(), "repo_test.db")
	if err := database.RunMigrations(url); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := database.Open(url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}
