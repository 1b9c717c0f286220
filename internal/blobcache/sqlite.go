package blobcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/postdeck/internal/db"
	"github.com/debemdeboas/postdeck/internal/util"
	"github.com/debemdeboas/postdeck/internal/util/compression"
)

// SQLite keeps blobs in the blobs table, compressed.
type SQLite struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLite(database db.DB, compressor compression.Compressor) *SQLite {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &SQLite{db: database, compressor: compressor}
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var compressed []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading blob %s: %w", key, err)
	}

	data, err := s.compressor.Decompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("error decompressing blob %s: %w", key, err)
	}
	return data, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	compressed, err := s.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing blob %s: %w", key, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO blobs (key, data, content_hash, modified_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, content_hash = excluded.content_hash, modified_at = excluded.modified_at`,
		key, compressed, util.ContentHash(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving blob %s: %w", key, err)
	}

	blobLogger.Debug().Str("key", key).Int("size", len(data)).Int("stored", len(compressed)).Msg("Blob cached")
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("error deleting blob %s: %w", key, err)
	}
	return nil
}
