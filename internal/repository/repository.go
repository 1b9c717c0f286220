// Package repository is the relational metadata store for posts and their
// asset records.
package repository

import (
	"context"
	"errors"

	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/rs/zerolog"
)

var ErrPostNotFound = errors.New("post not found")

// PostFields are the post columns the save operation writes.
type PostFields struct {
	Title       string
	Description string
	Owner       model.UserID
	Status      model.PostStatus
}

// AssetRecord is one row of post_assets. Upserts are idempotent on ID.
type AssetRecord struct {
	ID            model.AssetID
	PostID        model.PostID
	URL           string
	Type          model.AssetType
	SortOrder     int
	ThumbnailPath string
}

type MetadataStore interface {
	CreatePost(ctx context.Context, fields PostFields) (model.PostID, error)
	UpdatePost(ctx context.Context, id model.PostID, fields PostFields) error
	UpsertAssets(ctx context.Context, records []AssetRecord) error
	DeleteAssets(ctx context.Context, ids []model.AssetID) error

	// GetPost returns the post with its assets ordered by sort order.
	GetPost(ctx context.Context, id model.PostID) (*model.DraftPost, error)
}

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

func statusOrDraft(s model.PostStatus) model.PostStatus {
	if s == "" {
		return model.PostStatusDraft
	}
	return s
}
