package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type AssetID string

func NewAssetID() AssetID {
	return AssetID(uuid.New().String())
}

type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
)

// AssetTypeFromContentType maps a MIME type onto an asset type.
func AssetTypeFromContentType(contentType string) (AssetType, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return AssetTypeImage, true
	case strings.HasPrefix(ct, "video/"):
		return AssetTypeVideo, true
	}
	return "", false
}

// AssetStatus is the lifecycle state of an asset relative to the last synced baseline.
type AssetStatus uint8

const (
	StatusUnchanged AssetStatus = iota
	StatusNew
	StatusModified
	StatusDeleted
)

var assetStatusNames = [...]string{
	StatusUnchanged: "unchanged",
	StatusNew:       "new",
	StatusModified:  "modified",
	StatusDeleted:   "deleted",
}

func (s AssetStatus) String() string {
	if int(s) < len(assetStatusNames) {
		return assetStatusNames[s]
	}
	return fmt.Sprintf("AssetStatus(%d)", uint8(s))
}

func (s AssetStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(assetStatusNames) {
		return nil, fmt.Errorf("unknown asset status %d", uint8(s))
	}
	return []byte(assetStatusNames[s]), nil
}

func (s *AssetStatus) UnmarshalText(text []byte) error {
	for i, name := range assetStatusNames {
		if name == string(text) {
			*s = AssetStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown asset status %q", text)
}

// Asset is the structured, serializable part of a media file attached to a post.
// Binary content lives beside it in a Blob keyed by the same ID.
type Asset struct {
	ID            AssetID       `json:"id"`
	Type          AssetType     `json:"asset_type"`
	URL           string        `json:"asset_url"`
	SortOrder     int           `json:"sort_order"`
	ThumbnailPath string        `json:"thumbnail_path,omitempty"`
	Blurhash      string        `json:"blurhash,omitempty"`
	Status        AssetStatus   `json:"status"`
	EditSettings  *EditSettings `json:"edit_settings,omitempty"`
}

func (a Asset) Clone() Asset {
	if a.EditSettings != nil {
		es := a.EditSettings.Clone()
		a.EditSettings = &es
	}
	return a
}

func CloneAssets(assets []Asset) []Asset {
	if assets == nil {
		return nil
	}
	out := make([]Asset, len(assets))
	for i, a := range assets {
		out[i] = a.Clone()
	}
	return out
}

// Blob is an in-memory binary handle: the bytes of a media file plus its declared type.
type Blob struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

func (b *Blob) Clone() *Blob {
	if b == nil {
		return nil
	}
	c := *b
	c.Data = append([]byte(nil), b.Data...)
	return &c
}
