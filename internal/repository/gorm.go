package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type postRow struct {
	ID          string `gorm:"type:uuid;primary_key"`
	Title       string `gorm:"type:varchar(255);not null;default:''"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	UserID      string `gorm:"index"`
	CreatedAt   time.Time
	ModifiedAt  time.Time  `gorm:"autoUpdateTime"`
	Assets      []assetRow `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

func (postRow) TableName() string { return "posts" }

func (p *postRow) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type assetRow struct {
	ID            string  `gorm:"type:uuid;primary_key"`
	PostID        string  `gorm:"type:uuid;not null;index:idx_post_assets_post,priority:1"`
	AssetURL      string  `gorm:"type:varchar(500);not null"`
	AssetType     string  `gorm:"type:varchar(20);not null"`
	SortOrder     int     `gorm:"not null;index:idx_post_assets_post,priority:2"`
	ThumbnailPath *string `gorm:"type:varchar(500)"`
	Blurhash      *string
	ModifiedAt    time.Time `gorm:"autoUpdateTime"`
}

func (assetRow) TableName() string { return "post_assets" }

// GormMetadataStore keeps post metadata in PostgreSQL.
type GormMetadataStore struct { // implements MetadataStore
	db *gorm.DB
}

// OpenPostgres connects with dsn and migrates the posts and post_assets tables.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	if err := db.AutoMigrate(&postRow{}, &assetRow{}); err != nil {
		return nil, fmt.Errorf("error migrating metadata tables: %w", err)
	}
	return db, nil
}

func NewGormMetadataStore(db *gorm.DB) *GormMetadataStore {
	return &GormMetadataStore{db: db}
}

func (r *GormMetadataStore) CreatePost(ctx context.Context, fields PostFields) (model.PostID, error) {
	row := postRow{
		Title:       fields.Title,
		Description: fields.Description,
		Status:      string(statusOrDraft(fields.Status)),
		UserID:      string(fields.Owner),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("error creating post: %w", err)
	}

	repoLogger.Debug().Str("post_id", row.ID).Msg("Post created")
	return model.PostID(row.ID), nil
}

func (r *GormMetadataStore) UpdatePost(ctx context.Context, id model.PostID, fields PostFields) error {
	res := r.db.WithContext(ctx).Model(&postRow{}).Where("id = ?", string(id)).Updates(map[string]any{
		"title":       fields.Title,
		"description": fields.Description,
		"status":      string(statusOrDraft(fields.Status)),
	})
	if res.Error != nil {
		return fmt.Errorf("error updating post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	return nil
}

func (r *GormMetadataStore) UpsertAssets(ctx context.Context, records []AssetRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]assetRow, len(records))
	for i, rec := range records {
		rows[i] = toAssetRow(rec)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"post_id", "asset_url", "asset_type", "sort_order", "thumbnail_path", "modified_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("error upserting assets: %w", err)
	}
	return nil
}

func (r *GormMetadataStore) DeleteAssets(ctx context.Context, ids []model.AssetID) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", keys).Delete(&assetRow{}).Error; err != nil {
		return fmt.Errorf("error deleting assets: %w", err)
	}
	return nil
}

func (r *GormMetadataStore) GetPost(ctx context.Context, id model.PostID) (*model.DraftPost, error) {
	var row postRow
	err := r.db.WithContext(ctx).Preload("Assets", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_assets.sort_order ASC")
	}).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading post: %w", err)
	}
	return toDraftPost(row), nil
}

func toAssetRow(rec AssetRecord) assetRow {
	row := assetRow{
		ID:        string(rec.ID),
		PostID:    string(rec.PostID),
		AssetURL:  rec.URL,
		AssetType: string(rec.Type),
		SortOrder: rec.SortOrder,
	}
	if rec.ThumbnailPath != "" {
		thumb := rec.ThumbnailPath
		row.ThumbnailPath = &thumb
	}
	return row
}

func toDraftPost(row postRow) *model.DraftPost {
	post := &model.DraftPost{
		ID:           model.PostID(row.ID),
		Owner:        model.UserID(row.UserID),
		Title:        row.Title,
		Description:  row.Description,
		Status:       model.PostStatus(row.Status),
		ModifiedDate: row.ModifiedAt,
		Assets:       make([]model.Asset, 0, len(row.Assets)),
	}
	for _, a := range row.Assets {
		asset := model.Asset{
			ID:        model.AssetID(a.ID),
			Type:      model.AssetType(a.AssetType),
			URL:       a.AssetURL,
			SortOrder: a.SortOrder,
			Status:    model.StatusUnchanged,
		}
		if a.ThumbnailPath != nil {
			asset.ThumbnailPath = *a.ThumbnailPath
		}
		if a.Blurhash != nil {
			asset.Blurhash = *a.Blurhash
		}
		post.Assets = append(post.Assets, asset)
	}
	return post
}
