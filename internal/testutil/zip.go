package testutil

import (
	"archive/zip"
	"io"
	"os"
	"testing"
)

// Member is one entry for BuildZip. Order is preserved in the archive.
type Member struct {
	Name string
	Data []byte
}

// BuildZip writes a deflate-compressed zip file at path with the given
// members.
func BuildZip(t *testing.T, path string, members []Member) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating zip fixture: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		if err != nil {
			t.Fatalf("creating member %s: %v", m.Name, err)
		}
		if _, err := w.Write(m.Data); err != nil {
			t.Fatalf("writing member %s: %v", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip fixture: %v", err)
	}
}

// ReadMember returns the decompressed bytes of one member of the zip at
// path.
func ReadMember(t *testing.T, path, name string) []byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening zip %s: %v", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening member %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading member %s: %v", name, err)
		}
		return data
	}
	t.Fatalf("member %s not found in %s", name, path)
	return nil
}

// RawMember returns the stored (possibly compressed) bytes and declared
// CRC-32 of one member, for byte-fidelity comparisons.
func RawMember(t *testing.T, path, name string) ([]byte, uint32) {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening zip %s: %v", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.OpenRaw()
		if err != nil {
			t.Fatalf("opening raw member %s: %v", name, err)
		}
		raw, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading raw member %s: %v", name, err)
		}
		return raw, f.CRC32
	}
	t.Fatalf("member %s not found in %s", name, path)
	return nil, 0
}

// ReadFile reads a whole file, failing the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}
