package domain

import "errors"

// Domain-level errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrPhotoNotFound = errors.New("photo not found")
	ErrUnauthorized  = errors.New("only an authorized user can post a photo")
	ErrForbidden     = errors.New("photo belongs to another user")
	ErrGithubAuth    = errors.New("github authorization failed")
	ErrUpstream      = errors.New("upstream service unavailable")
	ErrInvalidCount  = errors.New("count must be between 1 and 5000")
)
