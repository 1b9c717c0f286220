package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/debemdeboas/postdeck/internal/blobcache"
	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/debemdeboas/postdeck/internal/repository/editor"
	"github.com/debemdeboas/postdeck/internal/util"
)

var errCorrupt = errors.New("corrupt session record")

type pendingBlob struct {
	ref  blobRef
	blob *model.Blob
}

// Flush writes the current state if it changed since the last write.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.version == s.persistedVersion {
		s.mu.Unlock()
		return nil
	}
	version := s.version
	post := s.post.Clone()
	baseline := model.CloneAssets(s.baseline)
	pending := s.pendingBlobs()
	s.mu.Unlock()

	refs := make([]blobRef, 0, len(pending))
	keep := make(map[string]bool, len(pending))
	for _, p := range pending {
		key := p.ref.key()
		p.ref.Hash = util.ContentHash(p.blob.Data)
		refs = append(refs, p.ref)
		keep[key] = true

		if s.written[key] == p.ref.Hash {
			continue
		}
		if err := s.blobs.Set(ctx, key, p.blob.Data); err != nil {
			return fmt.Errorf("cache blob %s: %w", key, err)
		}
		s.written[key] = p.ref.Hash
	}

	if post == nil {
		if err := s.repo.DeleteSession(ctx, s.name); err != nil {
			return fmt.Errorf("delete session record: %w", err)
		}
	} else {
		data, err := encodeRecord(&record{
			Version:  recordVersion,
			Post:     post,
			Baseline: baseline,
			Blobs:    refs,
		})
		if err != nil {
			return fmt.Errorf("encode session record: %w", err)
		}
		if err := s.repo.SaveSession(ctx, s.name, data); err != nil {
			return fmt.Errorf("save session record: %w", err)
		}
	}

	// Stale blobs go last so the stored record never points at missing content.
	for key := range s.written {
		if keep[key] {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			sessionLogger.Warn().Err(err).Str("key", key).Msg("Failed to release cached blob")
			continue
		}
		delete(s.written, key)
	}

	s.mu.Lock()
	if version > s.persistedVersion {
		s.persistedVersion = version
	}
	s.mu.Unlock()

	sessionLogger.Debug().Str("session", s.name).Uint64("version", version).Int("blobs", len(refs)).Msg("Draft session persisted")
	return nil
}

// pendingBlobs lists every binary handle of the current state. Caller holds mu.
func (s *Store) pendingBlobs() []pendingBlob {
	var out []pendingBlob
	add := func(kind blobcache.Kind, m map[model.AssetID]*model.Blob) {
		for id, b := range m {
			if b == nil {
				continue
			}
			out = append(out, pendingBlob{
				ref:  blobRef{Asset: id, Kind: kind, Name: b.Name, ContentType: b.ContentType},
				blob: b,
			})
		}
	}
	add(blobcache.KindFile, s.files)
	add(blobcache.KindOriginal, s.originals)
	add(blobcache.KindThumbnail, s.thumbnails)
	return out
}

// Load replaces the in-memory state with the persisted session, if any. A
// record that cannot be decoded, or whose content is missing from the blob
// cache, is discarded and the session starts empty. The loaded draft is never
// dirty.
func (s *Store) Load(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	saving := s.saving
	s.mu.Unlock()
	if saving {
		return ErrSaveInFlight
	}

	stored, err := s.repo.GetSession(ctx, s.name)
	if errors.Is(err, editor.ErrNotFound) {
		s.install(nil, nil, nil, map[string]string{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session record: %w", err)
	}

	rec, blobs, err := s.rehydrate(ctx, stored.Record)
	if errors.Is(err, errCorrupt) {
		sessionLogger.Warn().Err(err).Str("session", s.name).Msg("Discarding unreadable draft session")
		s.discard(ctx, rec)
		s.install(nil, nil, nil, map[string]string{})
		return nil
	}
	if err != nil {
		return err
	}

	written := make(map[string]string, len(rec.Blobs))
	for _, ref := range rec.Blobs {
		written[ref.key()] = ref.Hash
	}
	s.install(rec.Post, rec.Baseline, blobs, written)

	sessionLogger.Info().Str("session", s.name).Str("post", string(rec.Post.ID)).Int("assets", len(rec.Post.Assets)).Msg("Draft session restored")
	return nil
}

// rehydrate decodes a record and fetches its blobs. Cache read errors are
// returned as is; anything that makes the record unusable wraps errCorrupt.
func (s *Store) rehydrate(ctx context.Context, data []byte) (*record, map[blobRef]*model.Blob, error) {
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if rec.Version != recordVersion || rec.Post == nil {
		return rec, nil, fmt.Errorf("%w: unsupported record version %d", errCorrupt, rec.Version)
	}

	blobs := make(map[blobRef]*model.Blob, len(rec.Blobs))
	for _, ref := range rec.Blobs {
		data, ok, err := s.blobs.Get(ctx, ref.key())
		if err != nil {
			return rec, nil, fmt.Errorf("read cached blob %s: %w", ref.key(), err)
		}
		if !ok {
			return rec, nil, fmt.Errorf("%w: blob %s is missing", errCorrupt, ref.key())
		}
		if util.ContentHash(data) != ref.Hash {
			return rec, nil, fmt.Errorf("%w: blob %s does not match its hash", errCorrupt, ref.key())
		}
		blobs[ref] = &model.Blob{Name: ref.Name, ContentType: ref.ContentType, Data: data}
	}

	for _, a := range rec.Post.Assets {
		if a.Status != model.StatusNew {
			continue
		}
		ref := blobRef{Asset: a.ID, Kind: blobcache.KindFile}
		if !hasRef(rec.Blobs, ref) {
			return rec, nil, fmt.Errorf("%w: new asset %s has no content", errCorrupt, a.ID)
		}
	}
	return rec, blobs, nil
}

// install replaces the in-memory state with a loaded one. Caller holds persistMu.
func (s *Store) install(post *model.DraftPost, baseline []model.Asset, blobs map[blobRef]*model.Blob, written map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.post = post
	s.baseline = baseline
	if s.post != nil && s.post.Assets == nil {
		s.post.Assets = []model.Asset{}
	}
	for ref, b := range blobs {
		switch ref.Kind {
		case blobcache.KindFile:
			s.files[ref.Asset] = b
		case blobcache.KindOriginal:
			s.originals[ref.Asset] = b
		case blobcache.KindThumbnail:
			s.thumbnails[ref.Asset] = b
		}
	}
	if s.post != nil {
		for i := range s.post.Assets {
			a := &s.post.Assets[i]
			if s.files[a.ID] != nil {
				a.URL = localRef(a.ID)
			}
		}
	}

	s.written = written
	s.rebase()
	s.dirty = false
	s.version++
	s.persistedVersion = s.version
	s.notify()
}

// discard removes a corrupt record and whatever blobs it still names.
func (s *Store) discard(ctx context.Context, rec *record) {
	if err := s.repo.DeleteSession(ctx, s.name); err != nil {
		sessionLogger.Warn().Err(err).Str("session", s.name).Msg("Failed to delete corrupt session record")
	}
	if rec == nil {
		return
	}
	for _, ref := range rec.Blobs {
		if err := s.blobs.Delete(ctx, ref.key()); err != nil {
			sessionLogger.Warn().Err(err).Str("key", ref.key()).Msg("Failed to release cached blob")
		}
	}
}

func hasRef(refs []blobRef, want blobRef) bool {
	for _, r := range refs {
		if r.Asset == want.Asset && r.Kind == want.Kind {
			return true
		}
	}
	return false
}
