package session

import (
	"cmp"
	"slices"

	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/debemdeboas/postdeck/internal/variant"
)

// AddAssets appends one new asset per blob, in order. The batch is rejected
// as a whole if any blob is not an image or video, or if it would leave the
// post with more than one video.
func (s *Store) AddAssets(blobs ...model.Blob) ([]model.AssetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return nil, err
	}

	types := make([]model.AssetType, len(blobs))
	videos := 0
	if s.post.HasVideo() {
		videos++
	}
	for i, b := range blobs {
		t, ok := model.AssetTypeFromContentType(b.ContentType)
		if !ok {
			return nil, &ValidationError{Err: ErrUnsupportedMedia, Field: "file", Detail: b.Name + ": " + b.ContentType}
		}
		if t == model.AssetTypeVideo {
			videos++
		}
		types[i] = t
	}
	if videos > 1 {
		return nil, invalid(ErrSecondVideo, "file")
	}

	next := len(s.post.ActiveAssets()) + 1
	ids := make([]model.AssetID, 0, len(blobs))
	for i := range blobs {
		id := model.NewAssetID()
		blob := blobs[i].Clone()

		s.post.Assets = append(s.post.Assets, model.Asset{
			ID:        id,
			Type:      types[i],
			URL:       localRef(id),
			SortOrder: next,
			Status:    model.StatusNew,
		})
		s.files[id] = blob
		s.originals[id] = blob
		ids = append(ids, id)
		next++
	}

	if len(ids) > 0 {
		s.changed()
	}
	return ids, nil
}

// RemoveAsset drops a new asset outright and soft-deletes any other, then
// closes the gap in the ordering of what remains.
func (s *Store) RemoveAsset(id model.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, idx, err := s.activeAsset(id)
	if err != nil {
		return err
	}

	if asset.Status == model.StatusNew {
		s.post.Assets = slices.Delete(s.post.Assets, idx, idx+1)
		delete(s.files, id)
		delete(s.originals, id)
		delete(s.thumbnails, id)
	} else {
		asset.Status = model.StatusDeleted
	}

	s.renumber(activeIDs(s.post))
	s.changed()
	return nil
}

// ReorderAssets sets the display order. ids must be a permutation of the
// non-deleted asset ids.
func (s *Store) ReorderAssets(ids []model.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	current := activeIDs(s.post)
	if len(ids) != len(current) {
		return invalid(ErrInvalidOrder, "order")
	}
	seen := make(map[model.AssetID]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !slices.Contains(current, id) {
			return &ValidationError{Err: ErrInvalidOrder, Field: "order", Asset: id}
		}
		seen[id] = true
	}

	if s.renumber(ids) {
		s.changed()
	}
	return nil
}

// UpdateAssetFile replaces the active content of an asset. The first content
// the asset had in this session is kept as its original so later edits can
// always start from it. A nil settings clears any previous edit: file is then
// taken as final.
func (s *Store) UpdateAssetFile(id model.AssetID, file model.Blob, settings *model.EditSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, _, err := s.activeAsset(id)
	if err != nil {
		return err
	}
	t, ok := model.AssetTypeFromContentType(file.ContentType)
	if !ok || t != asset.Type {
		return &ValidationError{Err: ErrUnsupportedMedia, Field: "file", Asset: id, Detail: file.ContentType}
	}

	if s.originals[id] == nil && s.files[id] != nil {
		s.originals[id] = s.files[id]
	}
	s.files[id] = file.Clone()
	asset.URL = localRef(id)

	if settings != nil {
		es := settings.Clone()
		asset.EditSettings = &es
	} else {
		asset.EditSettings = nil
	}

	markEdited(asset)
	s.changed()
	return nil
}

// UpdateEditSettings records an edit that has not been rendered yet.
func (s *Store) UpdateEditSettings(id model.AssetID, settings model.EditSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, _, err := s.activeAsset(id)
	if err != nil {
		return err
	}

	es := settings.Clone()
	asset.EditSettings = &es
	markEdited(asset)
	s.changed()
	return nil
}

// SetVideoThumbnail attaches a frame extracted at offset seconds to a video asset.
func (s *Store) SetVideoThumbnail(id model.AssetID, thumb model.Blob, offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, _, err := s.activeAsset(id)
	if err != nil {
		return err
	}
	if asset.Type != model.AssetTypeVideo {
		return &ValidationError{Err: ErrUnsupportedMedia, Field: "thumbnail", Asset: id, Detail: "thumbnails belong to videos"}
	}
	if t, ok := model.AssetTypeFromContentType(thumb.ContentType); !ok || t != model.AssetTypeImage {
		return &ValidationError{Err: ErrUnsupportedMedia, Field: "thumbnail", Asset: id, Detail: thumb.ContentType}
	}

	es := model.EditSettings{}
	if asset.EditSettings != nil {
		es = asset.EditSettings.Clone()
	}
	es.ThumbnailTime = offset
	asset.EditSettings = &es
	s.thumbnails[id] = thumb.Clone()

	markEdited(asset)
	s.changed()
	return nil
}

// RandomizeAsset draws a fresh photometric parameter set for one image asset.
// Its crop, if any, is kept.
func (s *Store) RandomizeAsset(id model.AssetID, r variant.Rand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, _, err := s.activeAsset(id)
	if err != nil {
		return err
	}
	if asset.Type != model.AssetTypeImage {
		return &ValidationError{Err: ErrUnsupportedMedia, Asset: id, Detail: "only images can be randomized"}
	}

	randomize(asset, r)
	s.changed()
	return nil
}

// RandomizeAll draws an independent parameter set for every active image and
// returns how many were changed.
func (s *Store) RandomizeAll(r variant.Rand) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return 0, err
	}

	n := 0
	for i := range s.post.Assets {
		a := &s.post.Assets[i]
		if a.Status == model.StatusDeleted || a.Type != model.AssetTypeImage {
			continue
		}
		randomize(a, r)
		n++
	}
	if n > 0 {
		s.changed()
	}
	return n, nil
}

func randomize(asset *model.Asset, r variant.Rand) {
	es := model.EditSettings{}
	if asset.EditSettings != nil {
		es = asset.EditSettings.Clone()
	}
	es.Adjustments = variant.RandomAdjustments(r)
	asset.EditSettings = &es
	markEdited(asset)
}

// activeAsset looks up a non-deleted asset of the open, editable draft.
func (s *Store) activeAsset(id model.AssetID) (*model.Asset, int, error) {
	if err := s.editable(); err != nil {
		return nil, -1, err
	}
	asset, idx := s.post.Asset(id)
	if asset == nil || asset.Status == model.StatusDeleted {
		return nil, -1, ErrAssetNotFound
	}
	return asset, idx, nil
}

// renumber assigns 1..N to ids in order and reports whether anything moved.
// Synced assets that move become modified, since their order must be upserted.
func (s *Store) renumber(ids []model.AssetID) bool {
	moved := false
	for i, id := range ids {
		a, _ := s.post.Asset(id)
		if a == nil || a.SortOrder == i+1 {
			continue
		}
		a.SortOrder = i + 1
		markEdited(a)
		moved = true
	}
	return moved
}

func markEdited(a *model.Asset) {
	if a.Status == model.StatusUnchanged {
		a.Status = model.StatusModified
	}
}

func activeIDs(p *model.DraftPost) []model.AssetID {
	active := p.ActiveAssets()
	ids := make([]model.AssetID, len(active))
	for i, a := range active {
		ids[i] = a.ID
	}
	return ids
}

// normalizeOrder renumbers the active assets 1..N, keeping their relative
// order. Assets without a position go last, in slice order.
func normalizeOrder(assets []model.Asset) {
	var idx []int
	for i := range assets {
		if assets[i].Status != model.StatusDeleted {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(i, j int) int {
		a, b := assets[i].SortOrder, assets[j].SortOrder
		if (a <= 0) != (b <= 0) {
			if a <= 0 {
				return 1
			}
			return -1
		}
		return cmp.Compare(a, b)
	})
	for n, i := range idx {
		assets[i].SortOrder = n + 1
	}
}
