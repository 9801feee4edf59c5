package targets

import "eggpatch/internal/signature"

// Builtin returns the table shipped with the binary: the concurrent
// connection limit inside the pyovpn license property member. The old/new
// values are the 2-byte little-endian encoding of the limit (2 → 200) as
// stored in the stock distribution; site-specific builds can override the
// whole table with a targets file.
func Builtin() *Table {
	return NewTable(
		&Target{
			Name:   "pyovpn-concurrent-connections",
			Member: "pyovpn/lic/uprop.pyc",
			Detect: signature.NewLiteralDetector([]byte("concurrent_connections")),
			Old:    []byte{0x02, 0x00},
			New:    []byte{0xC8, 0x00},
		},
	)
}
