// Package app builds the concrete backends named by the configuration and
// wires them into a draft Store and a Reconciler.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/debemdeboas/postdeck/internal/blobcache"
	"github.com/debemdeboas/postdeck/internal/config"
	"github.com/debemdeboas/postdeck/internal/db"
	"github.com/debemdeboas/postdeck/internal/events"
	"github.com/debemdeboas/postdeck/internal/logger"
	"github.com/debemdeboas/postdeck/internal/reconcile"
	"github.com/debemdeboas/postdeck/internal/repository"
	"github.com/debemdeboas/postdeck/internal/repository/editor"
	"github.com/debemdeboas/postdeck/internal/session"
	"github.com/debemdeboas/postdeck/internal/storage"
	"github.com/debemdeboas/postdeck/internal/util/compression"
	"github.com/debemdeboas/postdeck/internal/variant"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Config *config.Config

	Metadata   repository.MetadataStore
	Storage    storage.Storage
	Pipeline   *variant.Pipeline
	Store      *session.Store
	Reconciler *reconcile.Reconciler
	Events     *events.Hub

	appLogger zerolog.Logger
	sqlite    *db.SQLite
	closers   []func() error
}

// SetLoggers hands every package a component logger derived from l.
func SetLoggers(l zerolog.Logger) {
	config.SetLogger(logger.Component(l, "config"))
	db.SetLogger(logger.Component(l, "db"))
	blobcache.SetLogger(logger.Component(l, "blobcache"))
	editor.SetLogger(logger.Component(l, "editor"))
	session.SetLogger(logger.Component(l, "session"))
	repository.SetLogger(logger.Component(l, "repository"))
	storage.SetLogger(logger.Component(l, "storage"))
	reconcile.SetLogger(logger.Component(l, "reconcile"))
}

// New opens every backend cfg selects, resumes the persisted session and
// returns the wired application. confirm gates discarding a dirty draft.
func New(ctx context.Context, cfg *config.Config, l zerolog.Logger, confirm session.ConfirmFunc) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	SetLoggers(l)

	a := &App{Config: cfg, appLogger: logger.Component(l, "app")}
	if err := a.open(ctx, confirm); err != nil {
		a.closeBackends()
		return nil, err
	}

	a.appLogger.Debug().
		Str("database", cfg.Database.Driver).
		Str("session", cfg.Session.Backend).
		Str("blob_cache", cfg.BlobCache.Backend).
		Str("storage", cfg.Storage.Backend).
		Msg("Application wired")
	return a, nil
}

func (a *App) open(ctx context.Context, confirm session.ConfirmFunc) error {
	cfg := a.Config

	compressor, err := compression.New(cfg.BlobCache.Compression)
	if err != nil {
		return err
	}

	if a.Metadata, err = a.openMetadata(); err != nil {
		return err
	}
	if a.Storage, err = a.openStorage(ctx); err != nil {
		return err
	}
	repo, err := a.openSessionRepository(compressor)
	if err != nil {
		return err
	}
	cache, err := a.openBlobCache(compressor)
	if err != nil {
		return err
	}

	a.Pipeline = variant.New(cfg.Variant.Width, cfg.Variant.Height)
	a.Reconciler = reconcile.New(a.Metadata, a.Storage, a.Pipeline)
	a.Reconciler.Concurrency = cfg.Storage.UploadConcurrency

	a.Events = events.NewHub()
	a.Store = session.New(session.Options{
		Repository:  repo,
		BlobCache:   cache,
		SessionName: cfg.Session.Name,
		Confirm:     confirm,
		Events:      a.Events,
	})
	if err := a.Store.Load(ctx); err != nil {
		a.Store.Close(ctx)
		a.Store = nil
		return fmt.Errorf("error loading session %q: %w", cfg.Session.Name, err)
	}
	return nil
}

// database opens the shared SQLite file on first use.
func (a *App) database() (db.DB, error) {
	if a.sqlite != nil {
		return a.sqlite, nil
	}
	path := a.Config.Database.Path
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	s := db.NewSQLite(path)
	if err := s.InitDB(); err != nil {
		s.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	a.sqlite = s
	a.closers = append(a.closers, s.Close)
	return s, nil
}

func (a *App) openMetadata() (repository.MetadataStore, error) {
	switch a.Config.Database.Driver {
	case config.DriverPostgres:
		gdb, err := repository.OpenPostgres(a.Config.Database.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return repository.NewGormMetadataStore(gdb), nil
	default:
		database, err := a.database()
		if err != nil {
			return nil, err
		}
		return repository.NewDBMetadataStore(database), nil
	}
}

func (a *App) openStorage(ctx context.Context) (storage.Storage, error) {
	cfg := a.Config.Storage
	switch cfg.Backend {
	case config.BackendS3:
		return storage.NewS3Storage(ctx, storage.S3Options{
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Region:          cfg.Region,
			BaseEndpoint:    cfg.Endpoint,
			Bucket:          cfg.Bucket,
		})
	case config.BackendMemory:
		return storage.NewMemoryStorage(), nil
	default:
		return storage.NewFSStorage(cfg.Dir)
	}
}

func (a *App) openSessionRepository(compressor compression.Compressor) (editor.Repository, error) {
	switch a.Config.Session.Backend {
	case config.BackendFS:
		return editor.NewFSRepository(a.Config.Session.Dir)
	case config.BackendMemory:
		return editor.NewMemoryRepository(), nil
	default:
		database, err := a.database()
		if err != nil {
			return nil, err
		}
		return editor.NewSQLiteRepository(database, compressor), nil
	}
}

func (a *App) openBlobCache(compressor compression.Compressor) (blobcache.Cache, error) {
	cfg := a.Config.BlobCache
	switch cfg.Backend {
	case config.BackendFS:
		fs, err := blobcache.OpenFS(cfg.Dir, compressor)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fs.Close)
		return fs, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		return blobcache.NewRedis(client, blobcache.DefaultRedisPrefix, cfg.TTL, compressor), nil
	case config.BackendMemory:
		return blobcache.NewMemory(), nil
	default:
		database, err := a.database()
		if err != nil {
			return nil, err
		}
		return blobcache.NewSQLite(database, compressor), nil
	}
}

// Close flushes the session and releases every backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("error closing session: %w", err))
		}
	}
	if err := a.closeBackends(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeBackends() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func ensureParent(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", dir, err)
	}
	return nil
}

// InitDatabase creates or migrates the metadata schema of the configured
// database without opening a session.
func InitDatabase(cfg *config.Config) error {
	if cfg.Database.Driver == config.DriverPostgres {
		gdb, err := repository.OpenPostgres(cfg.Database.DSN)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
		return nil
	}

	if err := ensureParent(cfg.Database.Path); err != nil {
		return err
	}
	s := db.NewSQLite(cfg.Database.Path)
	defer s.Close()
	if err := s.InitDB(); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	return nil
}
