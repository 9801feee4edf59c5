package engine

// Codec opens archive-format containers. It abstracts the on-disk format so
// the engine can be exercised in tests without real zip files.
type Codec interface {
	// Open parses the container's member table and returns a handle for
	// reading and rewriting members. The caller must Close the container.
	Open(path string) (Container, error)
}

// Container is an open archive holding named members.
type Container interface {
	// ReadMember returns the decompressed bytes of one member. Integrity
	// checks on the stored data are enforced during decompression.
	ReadMember(name string) ([]byte, error)

	// WriteMembers re-serializes the whole container with the given members
	// replaced by full substitute buffers. Untouched members are carried
	// byte-for-byte. The write is all-or-nothing: a temporary file replaces
	// the original via rename, or the original is left untouched.
	WriteMembers(replacements map[string][]byte) error

	// Close releases the underlying file handle.
	Close() error
}
