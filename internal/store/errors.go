package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrInvalidCursor is returned when a cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor format")

	// ErrInvalidSession is returned when a session fails validation.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidPlayerEvent is returned when a player event fails validation.
	ErrInvalidPlayerEvent = errors.New("invalid player event")

	// ErrInvalidPhoto is returned when a photo record fails validation.
	ErrInvalidPhoto = errors.New("invalid photo")
)
