package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/debemdeboas/postdeck/internal/db"
	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/google/uuid"
)

type DBMetadataStore struct { // implements MetadataStore
	db db.DB
}

func NewDBMetadataStore(db db.DB) *DBMetadataStore {
	return &DBMetadataStore{db: db}
}

func (r *DBMetadataStore) CreatePost(ctx context.Context, fields PostFields) (model.PostID, error) {
	id := model.PostID(uuid.New().String())
	now := time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO posts (id, title, description, status, user_id, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, fields.Title, fields.Description, statusOrDraft(fields.Status), fields.Owner, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("error creating post: %w", err)
	}

	repoLogger.Debug().Str("post_id", string(id)).Msg("Post created")
	return id, nil
}

func (r *DBMetadataStore) UpdatePost(ctx context.Context, id model.PostID, fields PostFields) error {
	res, err := r.db.Exec(ctx,
		`UPDATE posts SET title = ?, description = ?, status = ?, modified_at = ? WHERE id = ?`,
		fields.Title, fields.Description, statusOrDraft(fields.Status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("error updating post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	return nil
}

// UpsertAssets writes all records in one transaction. Blurhash is left to
// whatever computed it.
func (r *DBMetadataStore) UpsertAssets(ctx context.Context, records []AssetRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO post_assets (id, post_id, asset_url, asset_type, sort_order, thumbnail_path, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   post_id = excluded.post_id,
		   asset_url = excluded.asset_url,
		   asset_type = excluded.asset_type,
		   sort_order = excluded.sort_order,
		   thumbnail_path = excluded.thumbnail_path,
		   modified_at = excluded.modified_at`)
	if err != nil {
		return fmt.Errorf("error preparing asset upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx, rec.ID, rec.PostID, rec.URL, rec.Type, rec.SortOrder, nullString(rec.ThumbnailPath), now)
		if err != nil {
			return fmt.Errorf("error upserting asset %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing assets: %w", err)
	}

	repoLogger.Debug().Int("count", len(records)).Msg("Assets upserted")
	return nil
}

func (r *DBMetadataStore) DeleteAssets(ctx context.Context, ids []model.AssetID) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM post_assets WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("error deleting assets: %w", err)
	}

	repoLogger.Debug().Int("count", len(ids)).Msg("Assets deleted")
	return nil
}

func (r *DBMetadataStore) GetPost(ctx context.Context, id model.PostID) (*model.DraftPost, error) {
	var post model.DraftPost
	var owner sql.NullString
	var modified sql.NullTime

	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, status, user_id, modified_at FROM posts WHERE id = ?`, id,
	).Scan(&post.ID, &post.Title, &post.Description, &post.Status, &owner, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning post: %w", err)
	}
	post.Owner = model.UserID(owner.String)
	post.ModifiedDate = modified.Time

	rows, err := r.db.Query(ctx,
		`SELECT id, asset_url, asset_type, sort_order, thumbnail_path, blurhash FROM post_assets WHERE post_id = ? ORDER BY sort_order`, id)
	if err != nil {
		return nil, fmt.Errorf("error querying assets: %w", err)
	}
	defer rows.Close()

	post.Assets = make([]model.Asset, 0)
	for rows.Next() {
		var a model.Asset
		var thumb, blurhash sql.NullString
		if err := rows.Scan(&a.ID, &a.URL, &a.Type, &a.SortOrder, &thumb, &blurhash); err != nil {
			return nil, fmt.Errorf("error scanning asset: %w", err)
		}
		a.ThumbnailPath = thumb.String
		a.Blurhash = blurhash.String
		a.Status = model.StatusUnchanged
		post.Assets = append(post.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading assets: %w", err)
	}

	return &post, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
