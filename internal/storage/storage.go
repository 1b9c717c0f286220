// Package storage is the durable object store that holds synced post media,
// addressed by the paths the reconciler derives.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("object not found")

type Storage interface {
	// Upload writes data at path, replacing any object already there.
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// Remove deletes every path. Missing objects are not an error.
	Remove(ctx context.Context, paths []string) error
	Download(ctx context.Context, path string) ([]byte, error)
}

var storageLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storageLogger = l
}

func validPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
