package editor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/postdeck/internal/db"
	"github.com/debemdeboas/postdeck/internal/util/compression"
)

// SQLiteRepository stores records in the draft_sessions table.
type SQLiteRepository struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteRepository(database db.DB, compressor compression.Compressor) *SQLiteRepository {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &SQLiteRepository{db: database, compressor: compressor}
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, name string, record []byte) error {
	compressed, err := r.compressor.Compress(record)
	if err != nil {
		return fmt.Errorf("error compressing session %s: %w", name, err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO draft_sessions (name, record, modified_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET record = excluded.record, modified_at = excluded.modified_at`,
		name, compressed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving session %s: %w", name, err)
	}

	editorLogger.Debug().Str("session", name).Int("size", len(record)).Msg("Session saved")
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, name string) (*Session, error) {
	var compressed []byte
	var modified sql.NullTime
	err := r.db.QueryRow(ctx, `SELECT record, modified_at FROM draft_sessions WHERE name = ?`, name).
		Scan(&compressed, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading session %s: %w", name, err)
	}

	record, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing session %s: %w", name, err)
	}

	return &Session{Name: name, Record: record, ModifiedAt: modified.Time}, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, name string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM draft_sessions WHERE name = ?`, name); err != nil {
		return fmt.Errorf("error deleting session %s: %w", name, err)
	}
	return nil
}
