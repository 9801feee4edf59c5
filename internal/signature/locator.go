// Package signature locates patch sites inside raw member bytes.
//
// Locate is an exact byte-sequence scan; Detector wraps a binary regular
// expression for version fingerprinting. Both are pure: no side effects,
// deterministic output.
package signature

import (
	"bytes"
	"fmt"

	"rsc.io/binaryregexp"
)

// Locate returns the offset of every non-overlapping occurrence of sig in
// data, in ascending order. An empty signature matches nothing.
func Locate(data, sig []byte) []int {
	if len(sig) == 0 {
		return nil
	}

	var offsets []int
	pos := 0
	for {
		i := bytes.Index(data[pos:], sig)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, pos+i)
		pos += i + len(sig)
	}
}

// Detector is a compiled fingerprint used to recognize a member layout
// before a patch is attempted.
type Detector struct {
	expr string
	re   *binaryregexp.Regexp
}

// NewDetector compiles a binary regular expression (Latin-1 semantics, so
// \xNN escapes match single bytes regardless of UTF-8 validity).
func NewDetector(expr string) (*Detector, error) {
	re, err := binaryregexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling detect pattern: %w", err)
	}
	return &Detector{expr: expr, re: re}, nil
}

// NewLiteralDetector builds a Detector that matches an exact byte sequence.
func NewLiteralDetector(lit []byte) *Detector {
	return &Detector{
		expr: binaryregexp.QuoteMeta(string(lit)),
		re:   binaryregexp.MustCompile(binaryregexp.QuoteMeta(string(lit))),
	}
}

// Match reports whether the fingerprint occurs anywhere in data.
func (d *Detector) Match(data []byte) bool {
	return d.re.Match(data)
}

// String returns the pattern source, for logs and listings.
func (d *Detector) String() string {
	return d.expr
}
