package clip

import "errors"

// Sentinel errors returned by the loaders
var (
	// ErrUnknownFormat means the file extension maps to no known decoder
	ErrUnknownFormat = errors.New("unknown audio format")

	// ErrInvalidFile means the decoder rejected the file contents
	ErrInvalidFile = errors.New("invalid audio file")

	// ErrEmptyClip means the file decoded to zero sample frames
	ErrEmptyClip = errors.New("clip contains no samples")
)
