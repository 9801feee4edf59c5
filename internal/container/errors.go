package container

import "errors"

var (
	// ErrMalformed is returned when the trailing member table cannot be
	// located or disagrees with what is readable.
	ErrMalformed = errors.New("malformed container")

	// ErrMemberNotFound is returned when a named member is absent.
	ErrMemberNotFound = errors.New("member not found")

	// ErrDecode is returned when a member's stored bytes fail decompression
	// or the integrity checksum on read.
	ErrDecode = errors.New("member data corrupt")
)
