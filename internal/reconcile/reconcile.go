// Package reconcile turns a draft and its baseline into the storage and
// metadata operations that bring durable state in line with it.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/debemdeboas/postdeck/internal/repository"
	"github.com/debemdeboas/postdeck/internal/session"
	"github.com/debemdeboas/postdeck/internal/storage"
	"github.com/debemdeboas/postdeck/internal/variant"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const renderedContentType = "image/jpeg"

var ErrNoSource = errors.New("no source content for asset")

var reconcileLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	reconcileLogger = l
}

type Reconciler struct {
	Metadata repository.MetadataStore
	Storage  storage.Storage
	Pipeline *variant.Pipeline

	// Concurrency caps parallel asset uploads. Zero means no limit.
	Concurrency int
}

func New(metadata repository.MetadataStore, store storage.Storage, pipeline *variant.Pipeline) *Reconciler {
	if pipeline == nil {
		pipeline = variant.New(variant.DefaultWidth, variant.DefaultHeight)
	}
	return &Reconciler{Metadata: metadata, Storage: store, Pipeline: pipeline}
}

// Save reconciles the open draft of s and installs the result as its new
// baseline. On failure the store is left exactly as it was so the save can be
// retried.
func (r *Reconciler) Save(ctx context.Context, s *session.Store, owner model.UserID) (*model.DraftPost, error) {
	snap, err := s.BeginSave()
	if err != nil {
		return nil, err
	}
	defer s.EndSave()

	saved, err := r.Reconcile(ctx, snap, owner)
	if err != nil {
		return nil, err
	}
	if err := s.SetPostAsSaved(saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// Reconcile runs the save algorithm against a snapshot and returns the saved
// post with every retained asset unchanged. Operations already performed
// when an error is returned are not rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, snap *session.Snapshot, owner model.UserID) (*model.DraftPost, error) {
	start := time.Now()
	post := snap.Post.Clone()
	if owner == "" {
		owner = post.Owner
	}

	fields := repository.PostFields{
		Title:       post.Title,
		Description: post.Description,
		Owner:       owner,
		Status:      post.Status,
	}
	if !post.IsSaved() {
		id, err := r.Metadata.CreatePost(ctx, fields)
		if err != nil {
			return nil, fmt.Errorf("create post record: %w", err)
		}
		post.ID = id
		post.Owner = owner
		reconcileLogger.Info().Str("post_id", string(id)).Msg("Post record created")
	} else if err := r.Metadata.UpdatePost(ctx, post.ID, fields); err != nil {
		return nil, fmt.Errorf("update post record: %w", err)
	}

	var pending []*model.Asset
	for i := range post.Assets {
		a := &post.Assets[i]
		switch a.Status {
		case model.StatusNew, model.StatusModified:
			pending = append(pending, a)
		case model.StatusUnchanged, model.StatusDeleted:
		default:
			return nil, fmt.Errorf("asset %s has unknown status %s", a.ID, a.Status)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
	for _, a := range pending {
		g.Go(func() error {
			return r.syncAsset(gctx, snap, post.ID, a)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	purged, err := r.purge(ctx, snap, post)
	if err != nil {
		return nil, err
	}

	final := make([]model.Asset, 0, len(post.Assets))
	for _, a := range post.Assets {
		if a.Status != model.StatusDeleted {
			final = append(final, a)
		}
	}
	slices.SortStableFunc(final, func(a, b model.Asset) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})

	records := make([]repository.AssetRecord, len(final))
	for i := range final {
		final[i].SortOrder = i + 1
		final[i].Status = model.StatusUnchanged
		records[i] = repository.AssetRecord{
			ID:            final[i].ID,
			PostID:        post.ID,
			URL:           final[i].URL,
			Type:          final[i].Type,
			SortOrder:     final[i].SortOrder,
			ThumbnailPath: final[i].ThumbnailPath,
		}
	}
	if err := r.Metadata.UpsertAssets(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert asset records: %w", err)
	}
	post.Assets = final

	reconcileLogger.Info().
		Str("post_id", string(post.ID)).
		Int("assets", len(final)).
		Int("purged", purged).
		Dur("took", time.Since(start)).
		Msg("Post saved")
	return post, nil
}

// syncAsset uploads whatever content of a new or modified asset changed,
// removing the objects it supersedes first.
func (r *Reconciler) syncAsset(ctx context.Context, snap *session.Snapshot, postID model.PostID, a *model.Asset) error {
	base, synced := snap.BaselineAsset(a.ID)

	content, source, err := r.content(ctx, snap, postID, a, base, synced)
	if err != nil {
		return err
	}
	var thumb *model.Blob
	if a.Type == model.AssetTypeVideo {
		thumb = snap.Thumbnails[a.ID]
	}

	if content == nil && thumb == nil {
		if a.Status == model.StatusNew {
			return fmt.Errorf("%w %s", ErrNoSource, a.ID)
		}
		// Order or metadata only.
		return nil
	}

	if synced {
		var stale []string
		if content != nil && stored(base.URL) {
			stale = append(stale, base.URL)
		}
		if thumb != nil && stored(base.ThumbnailPath) {
			stale = append(stale, base.ThumbnailPath)
		}
		if len(stale) > 0 {
			if err := r.Storage.Remove(ctx, stale); err != nil {
				reconcileLogger.Warn().Err(err).Strs("paths", stale).Msg("Failed to remove superseded objects")
			}
		}
	}

	if content != nil {
		path := PathFor(a.Type, postID, a.ID)
		if err := r.Storage.Upload(ctx, path, content.Data, content.ContentType); err != nil {
			return fmt.Errorf("upload asset %s: %w", a.ID, err)
		}
		a.URL = path
	}
	if source != nil {
		if err := r.Storage.Upload(ctx, SourcePathFor(postID, a.ID), source.Data, source.ContentType); err != nil {
			return fmt.Errorf("upload source of %s: %w", a.ID, err)
		}
	}
	if thumb != nil {
		path := ThumbnailPathFor(postID, a.ID)
		if err := r.Storage.Upload(ctx, path, thumb.Data, thumb.ContentType); err != nil {
			return fmt.Errorf("upload thumbnail of %s: %w", a.ID, err)
		}
		a.ThumbnailPath = path
	}
	return nil
}

// content returns the bytes to store for an asset, or nil when its stored
// content is still current. For images it also returns the source to keep
// at SourcePathFor when that changed too.
//
// Edit settings are only ever applied to a source: the asset's original, or
// the stored source of a synced asset. Never to a file that may already be an
// edited intermediate, nor to the stored variant.
func (r *Reconciler) content(ctx context.Context, snap *session.Snapshot, postID model.PostID, a *model.Asset, base model.Asset, synced bool) (out, source *model.Blob, err error) {
	file := snap.Files[a.ID]
	if a.Type == model.AssetTypeVideo {
		return file, nil, nil
	}

	edited := a.EditSettings != nil && !(synced && sameSettings(a.EditSettings, base.EditSettings))
	if file == nil && !edited {
		return nil, nil, nil
	}

	source = snap.Originals[a.ID]
	if a.EditSettings == nil {
		if source == nil {
			source = file
		}
		if r.Pipeline.Conforms(file.Data) {
			return file, source, nil
		}
		out, err = r.render(a.ID, file.Name, file.Data, model.EditSettings{})
		return out, source, err
	}

	if source == nil && !synced {
		source = file
	}
	if source != nil {
		out, err = r.render(a.ID, source.Name, source.Data, *a.EditSettings)
		return out, source, err
	}

	data, migrated, err := r.storedSource(ctx, postID, a.ID, base)
	if err != nil {
		return nil, nil, err
	}
	out, err = r.render(a.ID, "", data, *a.EditSettings)
	if err != nil {
		return nil, nil, err
	}
	if migrated {
		source = &model.Blob{ContentType: http.DetectContentType(data), Data: data}
	}
	return out, source, nil
}

// storedSource downloads the untouched source of a synced image. Assets saved
// before sources were kept fall back to their stored content, which is only a
// source if it was never edited; the bool reports that fallback.
func (r *Reconciler) storedSource(ctx context.Context, postID model.PostID, id model.AssetID, base model.Asset) ([]byte, bool, error) {
	if !stored(base.URL) {
		return nil, false, fmt.Errorf("%w %s", ErrNoSource, id)
	}

	data, err := r.Storage.Download(ctx, SourcePathFor(postID, id))
	if err == nil {
		return data, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("download source of %s: %w", id, err)
	}

	if base.EditSettings != nil {
		return nil, false, fmt.Errorf("%w %s: stored content is an edited variant", ErrNoSource, id)
	}
	data, err = r.Storage.Download(ctx, base.URL)
	if err != nil {
		return nil, false, fmt.Errorf("download source of %s: %w", id, err)
	}
	return data, true, nil
}

func (r *Reconciler) render(id model.AssetID, name string, src []byte, settings model.EditSettings) (*model.Blob, error) {
	out, err := r.Pipeline.Render(src, settings)
	if err != nil {
		return nil, fmt.Errorf("render asset %s: %w", id, err)
	}
	return &model.Blob{Name: name, ContentType: renderedContentType, Data: out}, nil
}

// purge removes the stored objects and records of deleted assets. Storage
// failures are logged; a failed record delete aborts the save.
func (r *Reconciler) purge(ctx context.Context, snap *session.Snapshot, post *model.DraftPost) (int, error) {
	var ids []model.AssetID
	var paths []string
	for _, a := range post.Assets {
		if a.Status != model.StatusDeleted {
			continue
		}
		ids = append(ids, a.ID)

		src := a
		if base, ok := snap.BaselineAsset(a.ID); ok {
			src = base
		}
		for _, p := range []string{src.URL, src.ThumbnailPath} {
			if stored(p) {
				paths = append(paths, p)
			}
		}
		if src.Type == model.AssetTypeImage && stored(src.URL) {
			paths = append(paths, SourcePathFor(post.ID, a.ID))
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if len(paths) > 0 {
		if err := r.Storage.Remove(ctx, paths); err != nil {
			reconcileLogger.Warn().Err(err).Strs("paths", paths).Msg("Failed to remove objects of deleted assets")
		}
	}
	if err := r.Metadata.DeleteAssets(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete asset records: %w", err)
	}
	return len(ids), nil
}

func sameSettings(a, b *model.EditSettings) bool {
	if a == nil || b == nil {
		return a == b
	}
	x, y := *a, *b
	if (x.Crop == nil) != (y.Crop == nil) || (x.Crop != nil && *x.Crop != *y.Crop) {
		return false
	}
	x.Crop, y.Crop = nil, nil
	return x == y
}
