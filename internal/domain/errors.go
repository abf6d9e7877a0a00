package domain

import "errors"

var (
	ErrSignupNotFound    = errors.New("signup not found")
	ErrDuplicateID       = errors.New("signup with such id already exists")
	ErrSignupClosed      = errors.New("signup is closed")
	ErrOptionNotAllowed  = errors.New("option is not allowed in current access mode")
	ErrUnknownOption     = errors.New("there is no such option")
	ErrUnknownAccessMode = errors.New("unknown access mode")
	ErrInvalidLimit      = errors.New("limit must be a non-negative integer or none")
)
