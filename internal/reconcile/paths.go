package reconcile

import (
	"strings"

	"github.com/debemdeboas/postdeck/internal/model"
)

const (
	slidesPrefix     = "slides"
	videosPrefix     = "videos"
	thumbnailsPrefix = "thumbnails"
	originalsPrefix  = "originals"
)

// PathFor is the storage path of an asset's content. It depends only on its
// arguments, so a retried save writes to the same place.
func PathFor(t model.AssetType, post model.PostID, asset model.AssetID) string {
	prefix := slidesPrefix
	if t == model.AssetTypeVideo {
		prefix = videosPrefix
	}
	return prefix + "/" + string(post) + "/" + string(asset)
}

func ThumbnailPathFor(post model.PostID, asset model.AssetID) string {
	return thumbnailsPrefix + "/" + string(post) + "/" + string(asset)
}

// SourcePathFor is where the untouched source of an image is kept, so an
// edit made after a save renders from it rather than from the stored variant.
func SourcePathFor(post model.PostID, asset model.AssetID) string {
	return originalsPrefix + "/" + string(post) + "/" + string(asset)
}

// stored reports whether p names an object in storage rather than
// in-memory content.
func stored(p string) bool {
	return p != "" && !strings.Contains(p, "://")
}
