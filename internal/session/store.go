// Package session holds the single in-progress draft post of an editing
// session: its assets and their lifecycle, the baseline last synced to
// storage, and the local persistence that lets a session survive restarts.
//
// A Store is safe for concurrent use. Mutations are applied to memory
// synchronously; persistence runs behind them in a background goroutine and
// coalesces bursts of edits into a single write.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/debemdeboas/postdeck/internal/blobcache"
	"github.com/debemdeboas/postdeck/internal/events"
	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/debemdeboas/postdeck/internal/repository/editor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultSessionName = "draft-session"

// ConfirmFunc decides whether the dirty draft may be discarded. It runs with
// the Store locked and must not call back into it.
type ConfirmFunc func(current *model.DraftPost) bool

type Options struct {
	Repository  editor.Repository
	BlobCache   blobcache.Cache
	SessionName string

	// Confirm gates replacing a dirty draft. Nil declines every discard.
	Confirm ConfirmFunc

	// Events, if set, is told about every state change.
	Events *events.Hub
}

var sessionLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sessionLogger = l
}

type Store struct {
	mu sync.Mutex

	repo    editor.Repository
	blobs   blobcache.Cache
	name    string
	confirm ConfirmFunc
	events  *events.Hub

	post     *model.DraftPost
	baseline []model.Asset

	// Title and description as of the baseline.
	baseTitle       string
	baseDescription string

	files      map[model.AssetID]*model.Blob
	originals  map[model.AssetID]*model.Blob
	thumbnails map[model.AssetID]*model.Blob

	dirty  bool
	saving bool

	// version counts state changes; persistedVersion is the last one written.
	version          uint64
	persistedVersion uint64

	persistMu sync.Mutex
	written   map[string]string

	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns an empty Store and starts its persister. Call Load to resume a
// previous session and Close to stop persisting.
func New(opts Options) *Store {
	s := &Store{
		repo:       opts.Repository,
		blobs:      opts.BlobCache,
		name:       opts.SessionName,
		confirm:    opts.Confirm,
		events:     opts.Events,
		files:      map[model.AssetID]*model.Blob{},
		originals:  map[model.AssetID]*model.Blob{},
		thumbnails: map[model.AssetID]*model.Blob{},
		written:    map[string]string{},
		kick:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	if s.repo == nil {
		s.repo = editor.NewMemoryRepository()
	}
	if s.blobs == nil {
		s.blobs = blobcache.NewMemory()
	}
	if s.name == "" {
		s.name = DefaultSessionName
	}

	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Store) SessionName() string {
	return s.name
}

// Post returns a copy of the open draft, or nil when none is open.
func (s *Store) Post() *model.DraftPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post.Clone()
}

// Baseline returns a copy of the asset list last known to match storage.
func (s *Store) Baseline() []model.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneAssets(s.baseline)
}

func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Store) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// File returns the active content of an asset, if it is held in memory.
func (s *Store) File(id model.AssetID) *model.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[id].Clone()
}

// Original returns the content an asset had before any pending edit.
func (s *Store) Original(id model.AssetID) *model.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.originals[id].Clone()
}

func (s *Store) Thumbnail(id model.AssetID) *model.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thumbnails[id].Clone()
}

// SetPost opens post for editing, or closes the draft when post is nil. A
// dirty draft is only replaced if Confirm allows it; the returned bool reports
// whether post is now the open draft.
func (s *Store) SetPost(post *model.DraftPost) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return false, ErrSaveInFlight
	}
	if post != nil && s.post != nil && s.post.ID == post.ID {
		return true, nil
	}
	if !s.mayDiscard() {
		sessionLogger.Info().Str("post", string(s.post.ID)).Msg("Discard declined, keeping current draft")
		return false, nil
	}

	s.reset()
	if post != nil {
		s.post = post.Clone()
		if s.post.Assets == nil {
			s.post.Assets = []model.Asset{}
		}
		normalizeOrder(s.post.Assets)
		s.baseline = model.CloneAssets(s.post.Assets)
	}
	s.changedClean()
	return true, nil
}

// CreateNewPost opens an empty unsaved draft, subject to the same discard gate as SetPost.
func (s *Store) CreateNewPost() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return false, ErrSaveInFlight
	}
	if !s.mayDiscard() {
		return false, nil
	}

	s.reset()
	s.post = model.NewPlaceholder()
	s.baseline = []model.Asset{}
	s.changedClean()
	return true, nil
}

func (s *Store) UpdateTitle(title string) error {
	return s.mutate(func(p *model.DraftPost) error {
		p.Title = title
		return nil
	})
}

func (s *Store) UpdateDescription(description string) error {
	return s.mutate(func(p *model.DraftPost) error {
		p.Description = description
		return nil
	})
}

// ValidateForPublish checks the fields a post needs before it can go out.
func (s *Store) ValidateForPublish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.post == nil {
		return ErrNoDraft
	}
	if strings.TrimSpace(s.post.Title) == "" {
		return invalid(ErrMissingTitle, "title")
	}
	if len(s.post.ActiveAssets()) == 0 {
		return invalid(ErrNoAssets, "assets")
	}
	return nil
}

// Clear drops the draft and everything cached for it, then waits until the
// persisted session is removed. It is refused while a save is in flight.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.reset()
	s.changedClean()
	s.mu.Unlock()

	return s.Flush(ctx)
}

// Close stops the background persister and writes any pending state.
func (s *Store) Close(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return s.Flush(ctx)
}

// mutate applies fn to the open, editable draft.
func (s *Store) mutate(fn func(p *model.DraftPost) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if err := fn(s.post); err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *Store) editable() error {
	if s.saving {
		return ErrSaveInFlight
	}
	if s.post == nil {
		return ErrNoDraft
	}
	if !s.post.Status.Editable() {
		return ErrNotEditable
	}
	return nil
}

func (s *Store) mayDiscard() bool {
	if s.post == nil || !s.dirty {
		return true
	}
	if s.confirm == nil {
		return false
	}
	return s.confirm(s.post.Clone())
}

func (s *Store) reset() {
	s.post = nil
	s.baseline = nil
	s.files = map[model.AssetID]*model.Blob{}
	s.originals = map[model.AssetID]*model.Blob{}
	s.thumbnails = map[model.AssetID]*model.Blob{}
}

func (s *Store) changed() {
	s.dirty = s.differs()
	s.version++
	s.schedule()
	s.notify()
}

// changedClean records a state change that makes the current draft the
// baseline.
func (s *Store) changedClean() {
	s.rebase()
	s.dirty = false
	s.version++
	s.schedule()
	s.notify()
}

func (s *Store) rebase() {
	s.baseTitle, s.baseDescription = "", ""
	if s.post != nil {
		s.baseTitle, s.baseDescription = s.post.Title, s.post.Description
	}
}

// differs reports whether the draft differs from its baseline in its fields,
// or in the status, content or order of any asset. Caller holds mu.
func (s *Store) differs() bool {
	if s.post == nil {
		return false
	}
	if s.post.Title != s.baseTitle || s.post.Description != s.baseDescription {
		return true
	}
	if len(s.post.Assets) != len(s.baseline) {
		return true
	}
	for _, a := range s.post.Assets {
		if a.Status != model.StatusUnchanged {
			return true
		}
		i := slices.IndexFunc(s.baseline, func(b model.Asset) bool { return b.ID == a.ID })
		if i < 0 || s.baseline[i].SortOrder != a.SortOrder {
			return true
		}
	}
	return false
}

// notify publishes the current state. Caller holds mu.
func (s *Store) notify() {
	if s.events == nil {
		return
	}
	e := events.Event{Dirty: s.dirty, Version: s.version}
	if s.post != nil {
		e.Post = s.post.ID
	}
	s.events.Publish(e)
}

func (s *Store) schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case <-s.kick:
			if err := s.persist(context.Background()); err != nil {
				sessionLogger.Warn().Err(err).Str("session", s.name).Msg("Failed to persist draft session")
			}
		}
	}
}

// localRef is a transient reference for content that exists only in memory.
func localRef(id model.AssetID) string {
	return "local://" + string(id) + "/" + uuid.New().String()
}
