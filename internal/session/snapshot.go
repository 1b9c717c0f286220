package session

import (
	"maps"

	"github.com/debemdeboas/postdeck/internal/model"
)

// Snapshot is a consistent copy of the draft taken when a save starts. Blob
// handles are shared with the Store and must not be modified.
type Snapshot struct {
	Post     *model.DraftPost
	Baseline []model.Asset

	Files      map[model.AssetID]*model.Blob
	Originals  map[model.AssetID]*model.Blob
	Thumbnails map[model.AssetID]*model.Blob
}

// BaselineAsset returns the synced counterpart of an asset, if it has one.
func (s *Snapshot) BaselineAsset(id model.AssetID) (model.Asset, bool) {
	for _, a := range s.Baseline {
		if a.ID == id {
			return a, true
		}
	}
	return model.Asset{}, false
}

// BeginSave marks a save in flight and returns the state to reconcile. Until
// EndSave every mutation fails with ErrSaveInFlight.
func (s *Store) BeginSave() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return nil, err
	}
	s.saving = true

	return &Snapshot{
		Post:       s.post.Clone(),
		Baseline:   model.CloneAssets(s.baseline),
		Files:      maps.Clone(s.files),
		Originals:  maps.Clone(s.originals),
		Thumbnails: maps.Clone(s.thumbnails),
	}, nil
}

func (s *Store) EndSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
}

// SetPostAsSaved installs saved as both the draft and its new baseline. Every
// retained asset becomes unchanged and in-memory content is released, since
// storage now holds it.
func (s *Store) SetPostAsSaved(saved *model.DraftPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if saved == nil {
		return ErrNoDraft
	}

	post := saved.Clone()
	kept := make([]model.Asset, 0, len(post.Assets))
	for _, a := range post.Assets {
		if a.Status == model.StatusDeleted {
			continue
		}
		a.Status = model.StatusUnchanged
		kept = append(kept, a)
	}
	post.Assets = kept

	s.reset()
	s.post = post
	s.baseline = model.CloneAssets(post.Assets)
	s.changedClean()

	sessionLogger.Debug().Str("post", string(post.ID)).Int("assets", len(post.Assets)).Msg("Baseline replaced")
	return nil
}
