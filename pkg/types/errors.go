package types

import "errors"

// Schema errors. These indicate programmer error and are not recovered.
var (
	ErrTypeMismatch             = errors.New("type mismatch")
	ErrRequiredAttributeMissing = errors.New("required attribute missing")
	ErrUnknownAttribute         = errors.New("unknown attribute")
	ErrInvalidSchema            = errors.New("invalid schema")
)

// Record lifecycle errors.
var (
	ErrValidationFailed     = errors.New("validation failed")
	ErrInvalidState         = errors.New("invalid record state")
	ErrCorruptRow           = errors.New("stored row does not match schema")
	ErrNotFound             = errors.New("record not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrInvalidTable    = errors.New("invalid table name")
)
