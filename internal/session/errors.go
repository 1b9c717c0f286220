package session

import (
	"errors"
	"fmt"

	"github.com/debemdeboas/postdeck/internal/model"
)

var (
	// ErrValidation is matched by every rejected edit that leaves the draft unchanged.
	ErrValidation = errors.New("validation failed")

	ErrSecondVideo      = errors.New("a post may contain only one video")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidOrder     = errors.New("order must list every active asset exactly once")
	ErrMissingTitle     = errors.New("title is required")
	ErrNoAssets         = errors.New("at least one asset is required")

	ErrAssetNotFound = errors.New("asset not found")
	ErrNotEditable   = errors.New("post is not editable in its current status")
	ErrNoDraft       = errors.New("no draft is open")
	ErrSaveInFlight  = errors.New("a save is in progress")
)

type ValidationError struct {
	Err    error
	Field  string
	Asset  model.AssetID
	Detail string
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Asset != "" {
		msg = fmt.Sprintf("asset %s: %s", e.Asset, msg)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

func invalid(err error, field string) *ValidationError {
	return &ValidationError{Err: err, Field: field}
}
