// Package targets holds the versioned table mapping detected member layouts
// to patch specs. Which substitution applies to a given container is decided
// by walking this table in declared order, never by runtime introspection of
// the member contents beyond the declared detect fingerprints.
package targets

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"eggpatch/internal/engine"
	"eggpatch/internal/signature"
)

// Target is one entry of the table: a named member layout, a fingerprint
// that recognizes it, and the old/new value pair to substitute.
type Target struct {
	Name   string
	Member string
	Detect *signature.Detector
	Old    []byte
	New    []byte
}

// Spec returns the engine spec for this target.
func (t *Target) Spec() engine.PatchSpec {
	return engine.PatchSpec{
		Name:   t.Name,
		Member: t.Member,
		Old:    t.Old,
		New:    t.New,
	}
}

// Table is an ordered list of targets. Order is significant: selection
// returns the first target whose fingerprint matches.
type Table struct {
	targets []*Target
}

// NewTable builds a table from targets in selection order.
func NewTable(targets ...*Target) *Table {
	return &Table{targets: targets}
}

// Targets returns the table entries in selection order.
func (tbl *Table) Targets() []*Target {
	return tbl.targets
}

// Select returns the first target whose member exists in the container and
// whose detect fingerprint matches that member's bytes. readMember is called
// once per candidate member; members the container lacks are skipped.
// Returns nil when no target recognizes the container.
func (tbl *Table) Select(readMember func(name string) ([]byte, error)) (*Target, error) {
	read := map[string][]byte{}

	for _, t := range tbl.targets {
		data, ok := read[t.Member]
		if !ok {
			var err error
			data, err = readMember(t.Member)
			if err != nil {
				// A missing or unreadable member just means this target
				// does not apply; the next entry may use another member.
				read[t.Member] = nil
				continue
			}
			read[t.Member] = data
		}
		if data == nil {
			continue
		}
		if t.Detect.Match(data) {
			return t, nil
		}
	}
	return nil, nil
}

// tomlFile is the on-disk shape of a targets file.
type tomlFile struct {
	Targets []tomlTarget `toml:"target"`
}

type tomlTarget struct {
	Name   string `toml:"name"`
	Member string `toml:"member"`
	Detect string `toml:"detect"` // binary regular expression
	Old    string `toml:"old"`    // hex, spaces allowed
	New    string `toml:"new"`    // hex, spaces allowed
}

// LoadFile reads a targets table from a TOML file. Entries keep file order.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}

	var raw tomlFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding targets file %s: %w", path, err)
	}
	if len(raw.Targets) == 0 {
		return nil, fmt.Errorf("targets file %s declares no targets", path)
	}

	targets := make([]*Target, 0, len(raw.Targets))
	for i, rt := range raw.Targets {
		t, err := rt.compile()
		if err != nil {
			return nil, fmt.Errorf("target %d (%q): %w", i, rt.Name, err)
		}
		targets = append(targets, t)
	}
	return NewTable(targets...), nil
}

func (rt tomlTarget) compile() (*Target, error) {
	if rt.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if rt.Member == "" {
		return nil, fmt.Errorf("missing member")
	}
	if rt.Detect == "" {
		return nil, fmt.Errorf("missing detect pattern")
	}

	det, err := signature.NewDetector(rt.Detect)
	if err != nil {
		return nil, err
	}

	old, err := parseHex(rt.Old)
	if err != nil {
		return nil, fmt.Errorf("old value: %w", err)
	}
	new_, err := parseHex(rt.New)
	if err != nil {
		return nil, fmt.Errorf("new value: %w", err)
	}
	if len(old) != len(new_) {
		return nil, fmt.Errorf("old value is %d bytes but new value is %d: only same-length substitution is supported", len(old), len(new_))
	}

	return &Target{
		Name:   rt.Name,
		Member: rt.Member,
		Detect: det,
		Old:    old,
		New:    new_,
	}, nil
}

// parseHex decodes a hex string, tolerating spaces between byte pairs.
func parseHex(s string) ([]byte, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if cleaned == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}
