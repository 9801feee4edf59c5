// Package container reads and rewrites zip-format containers (the packaging
// used by egg distributions). Rewrites always re-serialize the whole archive:
// replaced members get recomputed checksum and size fields, untouched members
// are carried as raw stored bytes, and the result replaces the original file
// atomically or not at all.
package container

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"eggpatch/internal/engine"
)

// ZipCodec implements engine.Codec for zip-format containers.
type ZipCodec struct{}

// NewZipCodec creates a codec for zip-format containers.
func NewZipCodec() *ZipCodec { return &ZipCodec{} }

// Open parses the container's central directory and returns a handle.
func (*ZipCodec) Open(path string) (engine.Container, error) {
	c, err := Open(path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Compile-time check that ZipCodec implements engine.Codec
var _ engine.Codec = (*ZipCodec)(nil)

// MemberInfo describes one member of an open container.
type MemberInfo struct {
	Name             string
	UncompressedSize uint64
	CompressedSize   uint64
	CRC32            uint32
	Compressed       bool
}

// ZipContainer is an open zip container. It keeps the source file handle
// open for raw member access until Close.
type ZipContainer struct {
	path string
	mode os.FileMode
	zr   *zip.ReadCloser
}

// Open opens the zip container at path and parses its member table.
// Parse failures report ErrMalformed; filesystem failures pass through.
func Open(path string) (*ZipContainer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat container: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("container is not a regular file: %s", path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("opening container: %w", statErr)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	// Decompress Deflate members with the klauspost implementation.
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	return &ZipContainer{path: path, mode: info.Mode(), zr: zr}, nil
}

// Path returns the on-disk location of the container.
func (c *ZipContainer) Path() string { return c.path }

// Members lists the container's members in table order.
func (c *ZipContainer) Members() []MemberInfo {
	members := make([]MemberInfo, 0, len(c.zr.File))
	for _, f := range c.zr.File {
		members = append(members, MemberInfo{
			Name:             f.Name,
			UncompressedSize: f.UncompressedSize64,
			CompressedSize:   f.CompressedSize64,
			CRC32:            f.CRC32,
			Compressed:       f.Method != zip.Store,
		})
	}
	return members
}

// ReadMember returns the decompressed bytes of one member. The stored CRC-32
// is verified during the read; a mismatch or decompression failure reports
// ErrDecode. Caller-visible bytes are always the uncompressed content.
func (c *ZipContainer) ReadMember(name string) ([]byte, error) {
	f := c.find(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrDecode, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing %s: %v", ErrDecode, name, err)
	}
	return data, nil
}

// WriteMembers re-serializes the whole container to a temporary file in the
// same directory with the given members replaced, then renames it over the
// original. Replaced members are recompressed with their original method and
// get freshly computed CRC-32 and size fields; every other member's raw
// stored bytes are copied verbatim. On any failure the temporary file is
// discarded and the original is left untouched.
func (c *ZipContainer) WriteMembers(replacements map[string][]byte) error {
	for name := range replacements {
		if c.find(name) == nil {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, name)
		}
	}

	dir := filepath.Dir(c.path)
	tmpFile, err := os.CreateTemp(dir, ".eggpatch-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := c.serialize(tmpFile, replacements); err != nil {
		tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// CreateTemp opens with 0600; carry the original's mode forward.
	if err := os.Chmod(tmpPath, c.mode.Perm()); err != nil {
		return fmt.Errorf("setting temp file mode: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("replacing container: %w", err)
	}

	success = true
	return nil
}

// serialize writes the full archive to w with replacements applied.
func (c *ZipContainer) serialize(w io.Writer, replacements map[string][]byte) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, f := range c.zr.File {
		data, replaced := replacements[f.Name]
		if !replaced {
			// Raw copy: untouched members stay byte-for-byte identical.
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copying member %s: %w", f.Name, err)
			}
			continue
		}

		hdr := &zip.FileHeader{
			Name:     f.Name,
			Comment:  f.Comment,
			Method:   f.Method,
			Modified: f.Modified,
		}
		hdr.SetMode(f.Mode())

		mw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("creating member %s: %w", f.Name, err)
		}
		if _, err := mw.Write(data); err != nil {
			return fmt.Errorf("writing member %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing member table: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (c *ZipContainer) Close() error {
	return c.zr.Close()
}

func (c *ZipContainer) find(name string) *zip.File {
	for _, f := range c.zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Compile-time check that ZipContainer implements engine.Container
var _ engine.Container = (*ZipContainer)(nil)
