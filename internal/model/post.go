// Package model defines the draft post, its ordered assets and the edit parameters applied to them.
package model

import (
	"slices"
	"time"
)

type PostID string

type UserID string

// UnsavedPostID marks a draft that has no metadata record yet.
const UnsavedPostID PostID = "new"

type PostStatus string

const (
	PostStatusDraft      PostStatus = "DRAFT"
	PostStatusScheduled  PostStatus = "SCHEDULED"
	PostStatusFailed     PostStatus = "FAILED"
	PostStatusPublished  PostStatus = "PUBLISHED"
	PostStatusProcessing PostStatus = "PROCESSING"
)

// Editable reports whether assets and fields of a post in this status may change.
func (s PostStatus) Editable() bool {
	switch s {
	case PostStatusDraft, PostStatusFailed, PostStatusScheduled:
		return true
	}
	return false
}

type DraftPost struct {
	ID          PostID     `json:"id"`
	Owner       UserID     `json:"owner,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      PostStatus `json:"status"`
	Assets      []Asset    `json:"assets"`

	ModifiedDate time.Time `json:"modified_at,omitempty"`
}

// NewPlaceholder returns an empty draft that has not been created server-side.
func NewPlaceholder() *DraftPost {
	return &DraftPost{
		ID:     UnsavedPostID,
		Status: PostStatusDraft,
		Assets: []Asset{},
	}
}

// IsSaved reports whether the post has a server identity.
func (p *DraftPost) IsSaved() bool {
	return p.ID != "" && p.ID != UnsavedPostID
}

func (p *DraftPost) Clone() *DraftPost {
	if p == nil {
		return nil
	}
	c := *p
	c.Assets = CloneAssets(p.Assets)
	return &c
}

// Asset returns the asset with the given id and its index, or nil and -1.
func (p *DraftPost) Asset(id AssetID) (*Asset, int) {
	for i := range p.Assets {
		if p.Assets[i].ID == id {
			return &p.Assets[i], i
		}
	}
	return nil, -1
}

// ActiveAssets returns copies of the non-deleted assets ordered by SortOrder.
func (p *DraftPost) ActiveAssets() []Asset {
	active := make([]Asset, 0, len(p.Assets))
	for _, a := range p.Assets {
		if a.Status != StatusDeleted {
			active = append(active, a.Clone())
		}
	}
	slices.SortStableFunc(active, func(a, b Asset) int {
		return a.SortOrder - b.SortOrder
	})
	return active
}

// HasVideo reports whether a non-deleted video asset is attached.
func (p *DraftPost) HasVideo() bool {
	for _, a := range p.Assets {
		if a.Type == AssetTypeVideo && a.Status != StatusDeleted {
			return true
		}
	}
	return false
}
