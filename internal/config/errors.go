package config

import "errors"

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrMissingSetting = errors.New("missing required setting")
	ErrInvalidValue   = errors.New("invalid configuration value")
)
