package signature_test

import (
	"bytes"
	"testing"

	"eggpatch/internal/signature"
)

func TestLocate(t *testing.T) {
	t.Run("finds a single occurrence", func(t *testing.T) {
		data := []byte("prefix\x02\x00suffix")
		offsets := signature.Locate(data, []byte{0x02, 0x00})
		if len(offsets) != 1 {
			t.Fatalf("Locate() returned %d offsets, want 1", len(offsets))
		}
		if offsets[0] != 6 {
			t.Errorf("offset = %d, want 6", offsets[0])
		}
	})

	t.Run("returns nil when the signature is absent", func(t *testing.T) {
		offsets := signature.Locate([]byte("nothing to see"), []byte{0xff, 0xfe})
		if offsets != nil {
			t.Errorf("Locate() = %v, want nil", offsets)
		}
	})

	t.Run("returns every occurrence in ascending order", func(t *testing.T) {
		data := []byte("ab..ab....ab")
		offsets := signature.Locate(data, []byte("ab"))
		want := []int{0, 4, 10}
		if len(offsets) != len(want) {
			t.Fatalf("Locate() returned %d offsets, want %d", len(offsets), len(want))
		}
		for i := range want {
			if offsets[i] != want[i] {
				t.Errorf("offsets[%d] = %d, want %d", i, offsets[i], want[i])
			}
		}
	})

	t.Run("occurrences do not overlap", func(t *testing.T) {
		offsets := signature.Locate([]byte("aaaa"), []byte("aa"))
		want := []int{0, 2}
		if len(offsets) != len(want) {
			t.Fatalf("Locate() returned %v, want %v", offsets, want)
		}
		for i := range want {
			if offsets[i] != want[i] {
				t.Errorf("offsets[%d] = %d, want %d", i, offsets[i], want[i])
			}
		}
	})

	t.Run("empty signature matches nothing", func(t *testing.T) {
		if offsets := signature.Locate([]byte("data"), nil); offsets != nil {
			t.Errorf("Locate() = %v, want nil", offsets)
		}
	})

	t.Run("signature longer than data matches nothing", func(t *testing.T) {
		if offsets := signature.Locate([]byte("ab"), []byte("abc")); offsets != nil {
			t.Errorf("Locate() = %v, want nil", offsets)
		}
	})
}

func TestDetector(t *testing.T) {
	t.Run("matches raw bytes that are not valid UTF-8", func(t *testing.T) {
		d, err := signature.NewDetector(`\x02\x00{2}`)
		if err != nil {
			t.Fatalf("NewDetector() error = %v", err)
		}
		if !d.Match([]byte{0xaa, 0x02, 0x00, 0x00, 0xbb}) {
			t.Error("Match() = false, want true")
		}
		if d.Match([]byte{0x02, 0x01}) {
			t.Error("Match() = true, want false")
		}
	})

	t.Run("rejects invalid patterns", func(t *testing.T) {
		if _, err := signature.NewDetector("(unclosed"); err == nil {
			t.Error("NewDetector() error = nil, want parse error")
		}
	})

	t.Run("literal detector escapes metacharacters", func(t *testing.T) {
		lit := []byte("a.b(c)")
		d := signature.NewLiteralDetector(lit)
		if !d.Match(bytes.Join([][]byte{[]byte("xx"), lit, []byte("yy")}, nil)) {
			t.Error("Match() = false, want true for exact literal")
		}
		if d.Match([]byte("aXb(c)")) {
			t.Error("Match() = true, want false: dot must not act as a wildcard")
		}
	})
}
