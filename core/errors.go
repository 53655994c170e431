package core

import "errors"

var (
	// ErrFileNotSupported is returned when an attachment is not valid UTF-8 text.
	ErrFileNotSupported = errors.New("file not supported")
	ErrBadPayload       = errors.New("malformed callback payload")
	ErrUnknownAction    = errors.New("unknown action")
)
