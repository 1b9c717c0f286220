// Package editor persists the encoded draft session record under a session
// name. The record is opaque here; the session package owns its format.
package editor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("draft session not found")

type Session struct {
	Name       string
	Record     []byte
	ModifiedAt time.Time
}

type Repository interface {
	SaveSession(ctx context.Context, name string, record []byte) error
	// GetSession returns ErrNotFound when nothing is stored under name.
	GetSession(ctx context.Context, name string) (*Session, error)
	DeleteSession(ctx context.Context, name string) error
}

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}
