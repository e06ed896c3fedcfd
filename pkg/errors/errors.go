package relay_errors

import (
	"errors"
)

// Common errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrWindowClosed    = errors.New("messaging window closed")
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrTransport       = errors.New("transport dispatch failed")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrChannelDisabled = errors.New("channel disabled")
	ErrUnauthorized    = errors.New("unauthorized")
)