package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const failedToInitDB = "Failed to initialize database: %v"

func quietLogger() {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))
}

func TestNewSQLite(t *testing.T) {
	db := NewSQLite("")

	if db.path != DefaultPath {
		t.Errorf("Expected default path %q, got %q", DefaultPath, db.path)
	}
	if db.conn != nil {
		t.Error("Expected connection to be nil initially")
	}
	if db.Get() != nil {
		t.Error("Expected nil connection before initialization")
	}
}

func TestSQLiteSchema(t *testing.T) {
	quietLogger()

	db := NewSQLite(":memory:")
	defer db.Close()

	if err := db.InitDB(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}

	ctx := context.Background()

	t.Run("Tables exist", func(t *testing.T) {
		for _, table := range []string{"posts", "post_assets", "draft_sessions", "blobs"} {
			var name string
			err := db.QueryRow(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %s to exist: %v", table, err)
			}
		}
	})

	t.Run("Asset columns", func(t *testing.T) {
		rows, err := db.Query(ctx, "PRAGMA table_info(post_assets)")
		if err != nil {
			t.Fatalf("Failed to get table info: %v", err)
		}
		defer rows.Close()

		columns := make(map[string]bool)
		for rows.Next() {
			var cid, notNull, pk int
			var name, dataType string
			var defaultValue sql.NullString
			if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
				t.Fatalf("Failed to scan column info: %v", err)
			}
			columns[name] = true
		}

		for _, col := range []string{"id", "post_id", "asset_url", "asset_type", "sort_order", "thumbnail_path", "blurhash"} {
			if !columns[col] {
				t.Errorf("Expected post_assets to have column %s", col)
			}
		}
	})

	t.Run("Foreign keys are enabled", func(t *testing.T) {
		var enabled int
		if err := db.QueryRow(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("Failed to check foreign keys: %v", err)
		}
		if enabled != 1 {
			t.Error("Expected foreign keys to be enabled")
		}
	})

	t.Run("Deleting a post cascades to its assets", func(t *testing.T) {
		if _, err := db.Exec(ctx, `INSERT INTO posts (id, title) VALUES ('p1', 'Post')`); err != nil {
			t.Fatalf("Failed to insert post: %v", err)
		}
		if _, err := db.Exec(ctx, `INSERT INTO post_assets (id, post_id, asset_url, asset_type, sort_order) VALUES ('a1', 'p1', 'slides/p1/a1', 'image', 1)`); err != nil {
			t.Fatalf("Failed to insert asset: %v", err)
		}
		if _, err := db.Exec(ctx, `DELETE FROM posts WHERE id = 'p1'`); err != nil {
			t.Fatalf("Failed to delete post: %v", err)
		}

		var count int
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM post_assets`).Scan(&count); err != nil {
			t.Fatalf("Failed to count assets: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected cascade delete, %d assets remain", count)
		}
	})

	t.Run("Invalid SQL", func(t *testing.T) {
		if _, err := db.Exec(ctx, "INVALID SQL SYNTAX"); err == nil {
			t.Error("Expected error for invalid SQL")
		}
	})

	t.Run("Transactions", func(t *testing.T) {
		tx, err := db.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO posts (id) VALUES ('rolled-back')`); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}

		var count int
		db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE id = 'rolled-back'`).Scan(&count)
		if count != 0 {
			t.Error("Expected rolled back insert to be absent")
		}
	})
}

func TestSQLiteFileDatabase(t *testing.T) {
	quietLogger()

	path := filepath.Join(t.TempDir(), "postdeck.db")
	db := NewSQLite(path)

	if err := db.InitDB(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected database file to be created: %v", err)
	}

	// Re-running the schema on an existing database is harmless.
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	again := NewSQLite(path)
	defer again.Close()
	if err := again.InitDB(); err != nil {
		t.Fatalf("Second InitDB failed: %v", err)
	}
}

func TestSQLiteClose(t *testing.T) {
	quietLogger()

	t.Run("Close uninitialized database", func(t *testing.T) {
		if err := NewSQLite(":memory:").Close(); err != nil {
			t.Errorf("Expected no error closing uninitialized database, got: %v", err)
		}
	})

	t.Run("Close database twice", func(t *testing.T) {
		db := NewSQLite(":memory:")
		if err := db.InitDB(); err != nil {
			t.Fatalf(failedToInitDB, err)
		}
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database first time: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database second time: %v", err)
		}
	})
}

func TestDBInterface(t *testing.T) {
	var _ DB = (*SQLite)(nil)
}
