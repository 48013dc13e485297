package services

import "errors"

// Sentinel errors shared across services. Handlers match these with
// errors.Is to pick the envelope error code; anything else is treated as
// an internal failure.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state for this operation")
	ErrNotAvailable       = errors.New("article is not available")
	ErrAlreadyCompleted   = errors.New("transaction already completed")
	ErrSelfPurchase       = errors.New("cannot buy your own article")
	ErrSelfChat           = errors.New("cannot open a chat on your own article")
	ErrSelfRating         = errors.New("cannot rate yourself")
	ErrSelfReport         = errors.New("cannot report your own article")
	ErrConflict           = errors.New("already exists")
	ErrLoginExists        = errors.New("login already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrValidation         = errors.New("validation failed")
)
