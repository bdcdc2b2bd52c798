package blink

import "errors"

// Domain errors for the Blink bridge package.
var (
	// ErrNotReady is returned when a command arrives before any home screen
	// has been loaded.
	ErrNotReady = errors.New("blink bridge: no home screen loaded")

	// ErrInvalidCommand is returned for commands other than arm and disarm.
	ErrInvalidCommand = errors.New("blink bridge: invalid command")

	// ErrInvalidTopic is returned when a command topic has no numeric index.
	ErrInvalidTopic = errors.New("blink bridge: invalid command topic")
)
