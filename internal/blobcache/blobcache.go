// Package blobcache is the durable key to bytes store that keeps draft media
// alive across restarts. Only the draft session reads or writes it.
package blobcache

import (
	"context"
	"errors"
	"strings"

	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindFile      Kind = "file"
	KindOriginal  Kind = "original"
	KindThumbnail Kind = "thumbnail"
)

// Kinds lists every kind of blob kept per asset.
var Kinds = []Kind{KindFile, KindOriginal, KindThumbnail}

var (
	ErrInvalidKey = errors.New("invalid blob key")
	ErrLocked     = errors.New("blob cache directory is locked by another process")
)

// Key returns the cache key "{kind}_{asset_id}".
func Key(kind Kind, id model.AssetID) string {
	return string(kind) + "_" + string(id)
}

type Cache interface {
	// Get returns the bytes stored under key; ok is false when nothing is stored.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var blobLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	blobLogger = l
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return ErrInvalidKey
	}
	return nil
}
